package audio

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tapedeck/internal/shared"
	"gonum.org/v1/gonum/mat"
)

func TestAmplitudeToDB(t *testing.T) {
	mag := mat.NewDense(2, 2, []float64{1, 0.1, 0, 1e-9})
	db := AmplitudeToDB(mag)

	want := []float64{0, -20, -80, -80}
	for i, w := range want {
		got := db.At(i/2, i%2)
		if math.Abs(got-w) > 1e-9 {
			t.Errorf("db[%d] = %v, want %v", i, got, w)
		}
	}

	t.Run("silence", func(t *testing.T) {
		db := AmplitudeToDB(mat.NewDense(1, 2, []float64{0, 0}))
		if db.At(0, 0) != 0 || db.At(0, 1) != 0 {
			t.Errorf("expected 0 dB for all-silent input, got %v", mat.Formatted(db))
		}
	})
}

func TestNewSpectrogram(t *testing.T) {
	coeffs := mat.NewCDense(1, 2, []complex128{complex(0, 2), complex(-3, 0)})
	s := NewSpectrogram(coeffs, 22050)

	if s.Magnitude.At(0, 0) != 2 || s.Magnitude.At(0, 1) != 3 {
		t.Errorf("unexpected magnitude %v", mat.Formatted(s.Magnitude))
	}
	if math.Abs(s.Phase.At(0, 0)-math.Pi/2) > 1e-12 || math.Abs(s.Phase.At(0, 1)-math.Pi) > 1e-12 {
		t.Errorf("unexpected phase %v", mat.Formatted(s.Phase))
	}
	if s.SampleRate != 22050 {
		t.Errorf("SampleRate = %d", s.SampleRate)
	}
}

func TestReconstruct(t *testing.T) {
	t.Run("shape mismatch", func(t *testing.T) {
		mag := mat.NewDense(129, 10, nil)
		phase := mat.NewDense(129, 11, nil)
		if _, err := Reconstruct(mag, phase, 256, 64); !errors.Is(err, shared.ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("magnitude and phase recombine", func(t *testing.T) {
		x := sine(8000, 64*20, 300)
		coeffs, err := STFT(x, 256, 64)
		if err != nil {
			t.Fatal(err)
		}
		s := NewSpectrogram(coeffs, 8000)

		y, err := Reconstruct(s.Magnitude, s.Phase, 256, 64)
		if err != nil {
			t.Fatalf("Reconstruct failed: %v", err)
		}
		if len(y) != len(x) {
			t.Fatalf("expected %d samples, got %d", len(x), len(y))
		}
		for i := range x {
			if math.Abs(x[i]-y[i]) > 1e-6 {
				t.Fatalf("sample %d = %v, want %v", i, y[i], x[i])
			}
		}
	})
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	coeffs, err := STFT(sine(8000, 640, 200), 64, 16)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSpectrogram(coeffs, 8000)

	t.Run("full bundle", func(t *testing.T) {
		path := filepath.Join(dir, "full.npz")
		if err := SaveSpectrogram(path, s); err != nil {
			t.Fatalf("SaveSpectrogram failed: %v", err)
		}

		got, err := LoadSpectrogram(path)
		if err != nil {
			t.Fatalf("LoadSpectrogram failed: %v", err)
		}
		if err := got.RequireItems(ItemMagnitude, ItemPhase, ItemDecibels, ItemSampleRate); err != nil {
			t.Fatalf("unexpected missing item: %v", err)
		}
		if got.SampleRate != 8000 {
			t.Errorf("SampleRate = %d", got.SampleRate)
		}
		if !mat.Equal(got.Magnitude, s.Magnitude) || !mat.Equal(got.Phase, s.Phase) || !mat.Equal(got.Decibels, s.Decibels) {
			t.Error("archive matrices differ from saved spectrogram")
		}
	})

	t.Run("phase only", func(t *testing.T) {
		path := filepath.Join(dir, "phase.npz")
		if err := SavePhase(path, s.Phase, s.SampleRate); err != nil {
			t.Fatalf("SavePhase failed: %v", err)
		}

		got, err := LoadSpectrogram(path)
		if err != nil {
			t.Fatalf("LoadSpectrogram failed: %v", err)
		}
		if got.Magnitude != nil || got.Decibels != nil {
			t.Error("phase archive should carry no magnitude")
		}
		if err := got.RequireItems(ItemMagnitude); !errors.Is(err, shared.ErrMissingArchiveItem) {
			t.Errorf("expected ErrMissingArchiveItem, got %v", err)
		}
	})

	t.Run("numpy float32 archive", func(t *testing.T) {
		path := filepath.Join(dir, "librosa.npz")
		// 2x3 magnitude in Fortran order: columns (1,4) (2,5) (3,6).
		writeNumpyArchive(t, path, []numpyItem{
			{name: "magnitude", descr: "<f4", fortran: true, shape: "(2, 3)", data: []float32{1, 4, 2, 5, 3, 6}},
			{name: "phase", descr: "<f4", shape: "(2, 3)", data: []float32{0, 0.5, -0.5, 1, -1, 0.25}},
			{name: "sr", descr: "<i8", shape: "()", data: []int64{22050}},
		})

		got, err := LoadSpectrogram(path)
		if err != nil {
			t.Fatalf("LoadSpectrogram failed: %v", err)
		}
		if got.SampleRate != 22050 {
			t.Errorf("SampleRate = %d, want 22050", got.SampleRate)
		}

		wantMag := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
		if !mat.Equal(got.Magnitude, wantMag) {
			t.Errorf("magnitude = %v, want %v", mat.Formatted(got.Magnitude), mat.Formatted(wantMag))
		}
		wantPhase := mat.NewDense(2, 3, []float64{0, 0.5, -0.5, 1, -1, 0.25})
		if !mat.Equal(got.Phase, wantPhase) {
			t.Errorf("phase = %v, want %v", mat.Formatted(got.Phase), mat.Formatted(wantPhase))
		}
	})

	t.Run("numpy float64 scalar rate", func(t *testing.T) {
		path := filepath.Join(dir, "f8.npz")
		writeNumpyArchive(t, path, []numpyItem{
			{name: "phase", descr: "<f8", shape: "(1, 2)", data: []float64{0.1, 0.2}},
			{name: "sr", descr: "<f8", shape: "()", data: []float64{16000}},
		})

		got, err := LoadSpectrogram(path)
		if err != nil {
			t.Fatalf("LoadSpectrogram failed: %v", err)
		}
		if got.SampleRate != 16000 {
			t.Errorf("SampleRate = %d, want 16000", got.SampleRate)
		}
		if r, c := got.Phase.Dims(); r != 1 || c != 2 {
			t.Errorf("phase dims = %dx%d", r, c)
		}
	})

	t.Run("unsupported dtype", func(t *testing.T) {
		path := filepath.Join(dir, "complex.npz")
		writeNumpyArchive(t, path, []numpyItem{
			{name: "magnitude", descr: "<u2", shape: "(1, 2)", data: []uint16{1, 2}},
		})

		if _, err := LoadSpectrogram(path); !errors.Is(err, shared.ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadSpectrogram(filepath.Join(dir, "nope.npz")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("decode missing file", func(t *testing.T) {
		p := newTestProcessor(256, 64)
		if _, err := p.Decode(ctx, filepath.Join(t.TempDir(), "missing.mp3")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("convert wav", func(t *testing.T) {
		dir := t.TempDir()
		in := writeSineWAV(t, dir, 8000, 0.5)
		out, err := newTestProcessor(256, 64).Convert(ctx, in, filepath.Join(dir, "copy.wav"))
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		buf, err := ReadWAV(out)
		if err != nil {
			t.Fatalf("ReadWAV failed: %v", err)
		}
		if buf.Frames() != 4000 {
			t.Errorf("expected 4000 frames, got %d", buf.Frames())
		}
	})

	t.Run("trim", func(t *testing.T) {
		dir := t.TempDir()
		in := writeSineWAV(t, dir, 1000, 3)
		out := filepath.Join(dir, "trimmed.wav")
		p := newTestProcessor(256, 64)

		if err := p.Trim(ctx, in, out, 2); err != nil {
			t.Fatalf("Trim failed: %v", err)
		}
		buf, err := ReadWAV(out)
		if err != nil {
			t.Fatalf("ReadWAV failed: %v", err)
		}
		if buf.Frames() != 2000 {
			t.Errorf("expected 2000 frames, got %d", buf.Frames())
		}

		if err := p.Trim(ctx, in, out, 5); !errors.Is(err, shared.ErrInvalidDuration) {
			t.Errorf("expected ErrInvalidDuration, got %v", err)
		}
	})

	t.Run("spectrogram and reconstruct", func(t *testing.T) {
		dir := t.TempDir()
		in := writeSineWAV(t, dir, 8000, 1)
		p := newTestProcessor(256, 64)

		full := filepath.Join(dir, "full.npz")
		s, err := p.ExtractSpectrogram(ctx, in, full)
		if err != nil {
			t.Fatalf("ExtractSpectrogram failed: %v", err)
		}
		if r, c := s.Magnitude.Dims(); r != 129 || c != 126 {
			t.Errorf("expected 129x126, got %dx%d", r, c)
		}

		phase := filepath.Join(dir, "phase.npz")
		if err := p.ExtractPhase(ctx, in, phase); err != nil {
			t.Fatalf("ExtractPhase failed: %v", err)
		}

		out := filepath.Join(dir, "rebuilt.wav")
		if err := p.ReconstructFile(full, phase, out); err != nil {
			t.Fatalf("ReconstructFile failed: %v", err)
		}

		orig, _ := ReadWAV(in)
		rebuilt, err := ReadWAV(out)
		if err != nil {
			t.Fatalf("ReadWAV failed: %v", err)
		}
		if rebuilt.SampleRate != 8000 || rebuilt.Frames() != orig.Frames() {
			t.Fatalf("rebuilt sr=%d frames=%d, want 8000/%d", rebuilt.SampleRate, rebuilt.Frames(), orig.Frames())
		}
		for i := range orig.Data {
			if math.Abs(orig.Data[i]-rebuilt.Data[i]) > 1e-3 {
				t.Fatalf("sample %d = %v, want %v", i, rebuilt.Data[i], orig.Data[i])
			}
		}
	})

	t.Run("reconstruct shape mismatch", func(t *testing.T) {
		p := newTestProcessor(256, 64)
		err := p.Reconstruct(mat.NewDense(129, 4, nil), mat.NewDense(129, 5, nil), 8000, filepath.Join(t.TempDir(), "x.wav"))
		if !errors.Is(err, shared.ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})

	t.Run("reconstruct without magnitude", func(t *testing.T) {
		dir := t.TempDir()
		in := writeSineWAV(t, dir, 8000, 0.25)
		p := newTestProcessor(256, 64)

		phase := filepath.Join(dir, "phase.npz")
		if err := p.ExtractPhase(ctx, in, phase); err != nil {
			t.Fatal(err)
		}
		err := p.ReconstructFile(phase, phase, filepath.Join(dir, "x.wav"))
		if !errors.Is(err, shared.ErrMissingArchiveItem) {
			t.Errorf("expected ErrMissingArchiveItem, got %v", err)
		}
	})
}

func TestFFmpegPath(t *testing.T) {
	f := NewFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg-here"))
	if _, err := f.Path(); !errors.Is(err, shared.ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
}

type numpyItem struct {
	name    string
	descr   string
	fortran bool
	shape   string
	data    any
}

// writeNumpyArchive writes an npz the way numpy.savez does: stored zip entries holding version 1.0 .npy files.
func writeNumpyArchive(t *testing.T, path string, items []numpyItem) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, item := range items {
		order := "False"
		if item.fortran {
			order = "True"
		}
		header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", item.descr, order, item.shape)
		// magic (6) + version (2) + length (2) + header, padded with spaces to a multiple of 64 and ended by a newline
		pad := 64 - (10+len(header)+1)%64
		if pad == 64 {
			pad = 0
		}
		header += strings.Repeat(" ", pad) + "\n"

		w, err := zw.CreateHeader(&zip.FileHeader{Name: item.name + ".npy", Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		w.Write([]byte("\x93NUMPY\x01\x00"))
		binary.Write(w, binary.LittleEndian, uint16(len(header)))
		w.Write([]byte(header))
		if err := binary.Write(w, binary.LittleEndian, item.data); err != nil {
			t.Fatalf("failed to write data: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
}
