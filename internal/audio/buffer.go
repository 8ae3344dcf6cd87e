package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/desertthunder/tapedeck/internal/shared"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// Buffer holds interleaved samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float64
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Slice returns the frames in [start, end) as a new buffer sharing no memory with b.
func (b *Buffer) Slice(start, end int) *Buffer {
	data := make([]float64, (end-start)*b.Channels)
	copy(data, b.Data[start*b.Channels:end*b.Channels])
	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Data: data}
}

// Mono averages the channels into a single channel.
func (b *Buffer) Mono() []float64 {
	if b.Channels <= 1 {
		out := make([]float64, len(b.Data))
		copy(out, b.Data)
		return out
	}

	frames := b.Frames()
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range b.Channels {
			sum += b.Data[i*b.Channels+c]
		}
		out[i] = sum / float64(b.Channels)
	}
	return out
}

// ReadWAV decodes an integer PCM WAV file.
//
// Files that are not PCM WAV (float, extensible or compressed) return [shared.ErrUnsupportedFormat].
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid wav file", shared.ErrUnsupportedFormat, path)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav format %d", shared.ErrUnsupportedFormat, d.WavAudioFormat)
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	if ib == nil || ib.Format == nil {
		return nil, errors.New("failed to decode wav: missing format")
	}

	depth := int(d.BitDepth)
	scale := math.Ldexp(1, depth-1)
	data := make([]float64, len(ib.Data))
	for i, v := range ib.Data {
		if depth == 8 {
			data[i] = float64(v-128) / scale
			continue
		}
		data[i] = float64(v) / scale
	}

	return &Buffer{SampleRate: ib.Format.SampleRate, Channels: ib.Format.NumChannels, Data: data}, nil
}

// WriteWAV encodes b as a 16-bit PCM WAV file. Samples outside [-1, 1] are clipped.
func WriteWAV(path string, b *Buffer) error {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return fmt.Errorf("%w: sample rate %d, channels %d", shared.ErrInvalidArgument, b.SampleRate, b.Channels)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}

	ints := make([]int, len(b.Data))
	for i, v := range b.Data {
		v = math.Max(-1, math.Min(1, v))
		ints[i] = int(math.Round(v * 32767))
	}

	enc := wav.NewEncoder(f, b.SampleRate, 16, b.Channels, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}

	if err := enc.Write(ib); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return f.Close()
}
