package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tapedeck/internal/shared"
)

// FFmpeg locates and runs the ffmpeg executable.
type FFmpeg struct {
	location string
}

// NewFFmpeg creates a runner. location may be empty (PATH lookup), a directory containing ffmpeg, or a binary path.
func NewFFmpeg(location string) *FFmpeg {
	return &FFmpeg{location: location}
}

// Path resolves the executable.
func (f *FFmpeg) Path() (string, error) {
	candidate := "ffmpeg"
	if f.location != "" {
		candidate = f.location
		if info, err := os.Stat(f.location); err == nil && info.IsDir() {
			candidate = filepath.Join(f.location, "ffmpeg")
		}
	}

	path, err := exec.LookPath(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFFmpegNotFound, err)
	}
	return path, nil
}

// ToWAV converts any input ffmpeg understands to a 16-bit PCM WAV at out, overwriting it.
func (f *FFmpeg) ToWAV(ctx context.Context, in, out string) error {
	bin, err := f.Path()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-v", "error", "-y",
		"-i", in,
		"-vn", "-acodec", "pcm_s16le",
		"-f", "wav", out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: ffmpeg %s: %v %s", shared.ErrUnsupportedFormat, in, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
