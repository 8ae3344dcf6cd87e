package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"slices"
	"strings"

	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// Archive item names.
const (
	ItemMagnitude  = "magnitude"
	ItemPhase      = "phase"
	ItemDecibels   = "S_db"
	ItemSampleRate = "sr"
)

const (
	amplitudeFloor = 1e-5
	topDB          = 80.0
)

// Spectrogram is a magnitude/phase decomposition of a mono signal. All matrices share one shape.
type Spectrogram struct {
	Magnitude  *mat.Dense
	Phase      *mat.Dense
	Decibels   *mat.Dense
	SampleRate int
}

// NewSpectrogram splits a complex STFT into magnitude, phase and a max-referenced decibel matrix.
func NewSpectrogram(coeffs *mat.CDense, sampleRate int) *Spectrogram {
	r, c := coeffs.Dims()
	mag := mat.NewDense(r, c, nil)
	phase := mat.NewDense(r, c, nil)
	for i := range r {
		for j := range c {
			v := coeffs.At(i, j)
			mag.Set(i, j, cmplx.Abs(v))
			phase.Set(i, j, cmplx.Phase(v))
		}
	}
	return &Spectrogram{Magnitude: mag, Phase: phase, Decibels: AmplitudeToDB(mag), SampleRate: sampleRate}
}

// AmplitudeToDB converts magnitudes to decibels relative to the largest value, clamped to 80 dB below the peak.
func AmplitudeToDB(mag *mat.Dense) *mat.Dense {
	r, c := mag.Dims()
	ref := amplitudeFloor
	for i := range r {
		for j := range c {
			ref = math.Max(ref, mag.At(i, j))
		}
	}

	refDB := 20 * math.Log10(ref)
	out := mat.NewDense(r, c, nil)
	peak := math.Inf(-1)
	for i := range r {
		for j := range c {
			v := 20*math.Log10(math.Max(amplitudeFloor, mag.At(i, j))) - refDB
			out.Set(i, j, v)
			peak = math.Max(peak, v)
		}
	}

	floor := peak - topDB
	for i := range r {
		for j := range c {
			if out.At(i, j) < floor {
				out.Set(i, j, floor)
			}
		}
	}
	return out
}

// Complex recombines magnitude and phase into STFT values.
func Complex(mag, phase *mat.Dense) (*mat.CDense, error) {
	r, c := mag.Dims()
	pr, pc := phase.Dims()
	if r != pr || c != pc {
		return nil, fmt.Errorf("%w: magnitude is %dx%d, phase is %dx%d", shared.ErrShapeMismatch, r, c, pr, pc)
	}

	out := mat.NewCDense(r, c, nil)
	for i := range r {
		for j := range c {
			out.Set(i, j, cmplx.Rect(mag.At(i, j), phase.At(i, j)))
		}
	}
	return out, nil
}

// Reconstruct inverts a magnitude/phase pair back into a mono signal.
func Reconstruct(mag, phase *mat.Dense, nfft, hop int) ([]float64, error) {
	coeffs, err := Complex(mag, phase)
	if err != nil {
		return nil, err
	}
	return ISTFT(coeffs, nfft, hop)
}

// SaveSpectrogram writes the magnitude, phase, decibel and sample rate items to an npz archive.
func SaveSpectrogram(path string, s *Spectrogram) error {
	items := []archiveItem{
		{ItemMagnitude, s.Magnitude},
		{ItemPhase, s.Phase},
		{ItemDecibels, s.Decibels},
	}
	return writeArchive(path, s.SampleRate, items)
}

// SavePhase writes only the phase and sample rate items.
func SavePhase(path string, phase *mat.Dense, sampleRate int) error {
	return writeArchive(path, sampleRate, []archiveItem{{ItemPhase, phase}})
}

type archiveItem struct {
	name string
	m    *mat.Dense
}

func writeArchive(path string, sampleRate int, items []archiveItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	w := npz.NewWriter(f)
	for _, item := range items {
		if item.m == nil {
			continue
		}
		if err := w.Write(item.name, item.m); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", item.name, err)
		}
	}
	if err := w.Write(ItemSampleRate, []int64{int64(sampleRate)}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", ItemSampleRate, err)
	}

	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return f.Close()
}

// LoadSpectrogram reads an archive written by [SaveSpectrogram], [SavePhase] or numpy.
//
// Matrices may be float32 or float64 in C or Fortran order, and sr may be a 0-d scalar.
// Items that are absent are left nil; callers check for the ones they need with [RequireItems].
func LoadSpectrogram(path string) (*Spectrogram, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	keys := archiveKeys(r.Keys())
	s := &Spectrogram{}
	for name, dst := range map[string]**mat.Dense{
		ItemMagnitude: &s.Magnitude,
		ItemPhase:     &s.Phase,
		ItemDecibels:  &s.Decibels,
	} {
		key, ok := keys[name]
		if !ok {
			continue
		}
		m, err := readMatrix(r, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		*dst = m
	}

	if key, ok := keys[ItemSampleRate]; ok {
		sr, err := readFloats(r, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ItemSampleRate, err)
		}
		if len(sr) > 0 {
			s.SampleRate = int(math.Round(sr[0]))
		}
	}
	return s, nil
}

// readMatrix reads a 1-D or 2-D float array, honoring Fortran order. 1-D arrays become a single row.
func readMatrix(r *npz.Reader, key string) (*mat.Dense, error) {
	hdr := r.Header(key)
	if hdr == nil {
		return nil, fmt.Errorf("%w: no header for %q", shared.ErrMissingArchiveItem, key)
	}

	var rows, cols int
	switch shape := hdr.Descr.Shape; len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("%w: expected a 2-D array, got shape %v", shared.ErrShapeMismatch, shape)
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty array %v", shared.ErrShapeMismatch, hdr.Descr.Shape)
	}

	data, err := readFloats(r, key)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for shape %dx%d", shared.ErrShapeMismatch, len(data), rows, cols)
	}

	if !hdr.Descr.Fortran {
		return mat.NewDense(rows, cols, data), nil
	}
	m := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			m.Set(i, j, data[j*rows+i])
		}
	}
	return m, nil
}

// readFloats reads any numeric array, including a 0-d scalar, as float64 values in storage order.
func readFloats(r *npz.Reader, key string) ([]float64, error) {
	hdr := r.Header(key)
	if hdr == nil {
		return nil, fmt.Errorf("%w: no header for %q", shared.ErrMissingArchiveItem, key)
	}

	switch dtype := strings.TrimLeft(hdr.Descr.Type, "<=|"); dtype {
	case "f8":
		var v []float64
		err := r.Read(key, &v)
		return v, err
	case "f4":
		var v []float32
		if err := r.Read(key, &v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "i8":
		var v []int64
		if err := r.Read(key, &v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "i4":
		var v []int32
		if err := r.Read(key, &v); err != nil {
			return nil, err
		}
		return widen(v), nil
	default:
		return nil, fmt.Errorf("%w: array dtype %q", shared.ErrUnsupportedFormat, hdr.Descr.Type)
	}
}

func widen[T float32 | int64 | int32](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// RequireItems reports [shared.ErrMissingArchiveItem] for the first named item s lacks.
func (s *Spectrogram) RequireItems(names ...string) error {
	for _, name := range names {
		missing := false
		switch name {
		case ItemMagnitude:
			missing = s.Magnitude == nil
		case ItemPhase:
			missing = s.Phase == nil
		case ItemDecibels:
			missing = s.Decibels == nil
		case ItemSampleRate:
			missing = s.SampleRate <= 0
		}
		if missing {
			return fmt.Errorf("%w: %q", shared.ErrMissingArchiveItem, name)
		}
	}
	return nil
}

// archiveKeys maps bare item names to the stored key, which may carry a .npy suffix.
func archiveKeys(stored []string) map[string]string {
	out := make(map[string]string, len(stored))
	for _, k := range slices.Sorted(slices.Values(stored)) {
		out[strings.TrimSuffix(k, ".npy")] = k
	}
	return out
}
