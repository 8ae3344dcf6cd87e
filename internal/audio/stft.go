package audio

import (
	"fmt"
	"math"

	"github.com/desertthunder/tapedeck/internal/shared"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultNFFT      = 2048
	DefaultHopLength = 512
)

// HannWindow returns a periodic Hann window of length n.
func HannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func checkFrameParams(nfft, hop int) error {
	if nfft < 2 || nfft%2 != 0 {
		return fmt.Errorf("%w: n_fft must be even and at least 2, got %d", shared.ErrInvalidArgument, nfft)
	}
	if hop < 1 || hop > nfft {
		return fmt.Errorf("%w: hop length must be in [1, n_fft], got %d", shared.ErrInvalidArgument, hop)
	}
	return nil
}

// STFT computes the centered short-time Fourier transform of a mono signal.
//
// The result has nfft/2+1 rows (frequency bins) and 1+len(x)/hop columns (frames).
func STFT(x []float64, nfft, hop int) (*mat.CDense, error) {
	if err := checkFrameParams(nfft, hop); err != nil {
		return nil, err
	}

	pad := nfft / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	bins := nfft/2 + 1
	frames := 1 + len(x)/hop
	out := mat.NewCDense(bins, frames, nil)

	window := HannWindow(nfft)
	fft := fourier.NewFFT(nfft)
	buf := make([]float64, nfft)
	coeff := make([]complex128, bins)

	for f := range frames {
		seg := padded[f*hop : f*hop+nfft]
		for i := range buf {
			buf[i] = seg[i] * window[i]
		}
		coeff = fft.Coefficients(coeff, buf)
		for k, c := range coeff {
			out.Set(k, f, c)
		}
	}
	return out, nil
}

// ISTFT inverts [STFT] by windowed overlap-add, returning hop*(frames-1) samples.
func ISTFT(m *mat.CDense, nfft, hop int) ([]float64, error) {
	if err := checkFrameParams(nfft, hop); err != nil {
		return nil, err
	}

	bins, frames := m.Dims()
	if bins != nfft/2+1 {
		return nil, fmt.Errorf("%w: %d frequency bins for n_fft %d", shared.ErrShapeMismatch, bins, nfft)
	}

	total := nfft + hop*(frames-1)
	signal := make([]float64, total)
	norm := make([]float64, total)

	window := HannWindow(nfft)
	fft := fourier.NewFFT(nfft)
	coeff := make([]complex128, bins)
	seq := make([]float64, nfft)
	scale := 1 / float64(nfft)

	for f := range frames {
		for k := range coeff {
			coeff[k] = m.At(k, f)
		}
		seq = fft.Sequence(seq, coeff)

		offset := f * hop
		for i, v := range seq {
			signal[offset+i] += v * scale * window[i]
			norm[offset+i] += window[i] * window[i]
		}
	}

	for i, n := range norm {
		if n > 1e-10 {
			signal[i] /= n
		}
	}

	pad := nfft / 2
	return signal[pad : pad+hop*(frames-1)], nil
}
