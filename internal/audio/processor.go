package audio

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/shared"
	"gonum.org/v1/gonum/mat"
)

// Processor runs the file level audio transforms.
type Processor struct {
	ffmpeg *FFmpeg
	nfft   int
	hop    int
	rng    *rand.Rand
	logger *log.Logger
}

// ProcessorOption configures a [Processor].
type ProcessorOption func(*Processor)

// WithFrameParams sets the FFT size and hop length.
func WithFrameParams(nfft, hop int) ProcessorOption {
	return func(p *Processor) {
		p.nfft, p.hop = nfft, hop
	}
}

// WithRand sets the source used to pick trim windows.
func WithRand(rng *rand.Rand) ProcessorOption {
	return func(p *Processor) {
		p.rng = rng
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor that uses ffmpeg for every non-WAV input.
func NewProcessor(ffmpeg *FFmpeg, opts ...ProcessorOption) *Processor {
	if ffmpeg == nil {
		ffmpeg = NewFFmpeg("")
	}
	p := &Processor{ffmpeg: ffmpeg, nfft: DefaultNFFT, hop: DefaultHopLength}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if p.logger == nil {
		p.logger = shared.NewLogger(nil)
	}
	return p
}

// NewProcessorFromConfig maps the [audio] and [download] config sections.
func NewProcessorFromConfig(cfg *shared.Config, logger *log.Logger) *Processor {
	return NewProcessor(NewFFmpeg(cfg.Download.FFmpegLocation),
		WithFrameParams(cfg.Audio.NFFT, cfg.Audio.HopLength),
		WithLogger(logger),
	)
}

// Decode reads any audio file into a buffer, going through ffmpeg unless the file is already PCM WAV.
func (p *Processor) Decode(ctx context.Context, path string) (*Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := ReadWAV(path)
		if err == nil {
			return buf, nil
		}
		if !errors.Is(err, shared.ErrUnsupportedFormat) {
			return nil, err
		}
		p.logger.Debug("wav is not plain pcm, converting with ffmpeg", "path", path)
	}

	tmp, err := os.CreateTemp("", "tapedeck-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := p.ffmpeg.ToWAV(ctx, path, tmp.Name()); err != nil {
		return nil, err
	}
	return ReadWAV(tmp.Name())
}

// Convert decodes in and writes it as WAV. An empty out replaces the extension of in with .wav.
func (p *Processor) Convert(ctx context.Context, in, out string) (string, error) {
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + ".wav"
	}

	if strings.EqualFold(filepath.Ext(in), ".wav") {
		buf, err := p.Decode(ctx, in)
		if err != nil {
			return "", err
		}
		if err := WriteWAV(out, buf); err != nil {
			return "", err
		}
	} else if err := p.ffmpeg.ToWAV(ctx, in, out); err != nil {
		return "", err
	}

	p.logger.Info("converted", "input", in, "output", out)
	return out, nil
}

// Trim writes a random window of seconds from in to out as WAV.
func (p *Processor) Trim(ctx context.Context, in, out string, seconds float64) error {
	buf, err := p.Decode(ctx, in)
	if err != nil {
		return err
	}

	window, start, err := TrimBuffer(buf, seconds, p.rng)
	if err != nil {
		return err
	}
	if err := WriteWAV(out, window); err != nil {
		return err
	}

	p.logger.Info("trimmed", "input", in, "output", out,
		"start", fmt.Sprintf("%.2fs", float64(start)/float64(buf.SampleRate)), "duration", window.Duration())
	return nil
}

// Spectrogram decodes in, mixes it to mono and computes its spectrogram.
func (p *Processor) Spectrogram(ctx context.Context, in string) (*Spectrogram, error) {
	buf, err := p.Decode(ctx, in)
	if err != nil {
		return nil, err
	}

	coeffs, err := STFT(buf.Mono(), p.nfft, p.hop)
	if err != nil {
		return nil, err
	}
	return NewSpectrogram(coeffs, buf.SampleRate), nil
}

// ExtractSpectrogram writes the full magnitude, phase and decibel bundle of in to out.
func (p *Processor) ExtractSpectrogram(ctx context.Context, in, out string) (*Spectrogram, error) {
	s, err := p.Spectrogram(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := SaveSpectrogram(out, s); err != nil {
		return nil, err
	}

	bins, frames := s.Magnitude.Dims()
	p.logger.Info("spectrogram saved", "output", out, "bins", bins, "frames", frames, "sr", s.SampleRate)
	return s, nil
}

// ExtractPhase writes only the phase matrix of in to out.
func (p *Processor) ExtractPhase(ctx context.Context, in, out string) error {
	s, err := p.Spectrogram(ctx, in)
	if err != nil {
		return err
	}
	if err := SavePhase(out, s.Phase, s.SampleRate); err != nil {
		return err
	}

	p.logger.Info("phase saved", "output", out)
	return nil
}

// ReconstructFile combines the magnitude of magPath with the phase of phasePath and writes the signal as WAV.
//
// phasePath may equal magPath. The sample rate comes from the magnitude archive, then the phase archive.
func (p *Processor) ReconstructFile(magPath, phasePath, out string) error {
	magArchive, err := LoadSpectrogram(magPath)
	if err != nil {
		return err
	}
	if err := magArchive.RequireItems(ItemMagnitude); err != nil {
		return err
	}

	phaseArchive := magArchive
	if phasePath != "" && phasePath != magPath {
		if phaseArchive, err = LoadSpectrogram(phasePath); err != nil {
			return err
		}
	}
	if err := phaseArchive.RequireItems(ItemPhase); err != nil {
		return err
	}

	sr := magArchive.SampleRate
	if sr <= 0 {
		sr = phaseArchive.SampleRate
	}
	if sr <= 0 {
		return fmt.Errorf("%w: %q", shared.ErrMissingArchiveItem, ItemSampleRate)
	}

	return p.Reconstruct(magArchive.Magnitude, phaseArchive.Phase, sr, out)
}

// Reconstruct inverts a magnitude/phase pair and writes the mono signal to out as WAV at sr.
func (p *Processor) Reconstruct(mag, phase *mat.Dense, sr int, out string) error {
	signal, err := Reconstruct(mag, phase, p.nfft, p.hop)
	if err != nil {
		return err
	}
	if err := WriteWAV(out, &Buffer{SampleRate: sr, Channels: 1, Data: signal}); err != nil {
		return err
	}

	p.logger.Info("reconstructed", "output", out, "samples", len(signal), "sr", sr)
	return nil
}
