package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// AudioConvert converts each file to WAV. A failing file is logged and the rest are still converted.
func (r *Runner) AudioConvert(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one file is required", shared.ErrMissingArgument)
	}

	p := r.processor()
	failed := 0
	for _, in := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		out, err := p.Convert(ctx, in, "")
		if err != nil {
			r.logger.Error("conversion failed", "file", in, "error", err)
			failed++
			continue
		}
		r.writePlain("✓ %s -> %s\n", in, out)
	}

	if failed == len(files) {
		return fmt.Errorf("%w: no files converted", shared.ErrUnsupportedFormat)
	}
	if failed > 0 {
		r.logger.Warnf("%d of %d files failed to convert", failed, len(files))
	}
	return nil
}

// AudioTrim writes a random window of --duration seconds from IN to OUT.
func (r *Runner) AudioTrim(ctx context.Context, cmd *cli.Command) error {
	in, out, err := inOutArgs(cmd)
	if err != nil {
		return err
	}

	seconds := cmd.Float("duration")
	if seconds == 0 {
		seconds = r.config.Audio.TrimDuration
	}

	if err := r.processor().Trim(ctx, in, out, seconds); err != nil {
		return err
	}
	return r.writePlain("✓ %gs window of %s written to %s\n", seconds, in, out)
}

// AudioSpectrogram saves the spectrogram archive of IN, or only its phase with --phase-only.
func (r *Runner) AudioSpectrogram(ctx context.Context, cmd *cli.Command) error {
	in, out, err := inOutArgs(cmd)
	if err != nil {
		return err
	}

	p := r.processor()
	if cmd.Bool("phase-only") {
		if err := p.ExtractPhase(ctx, in, out); err != nil {
			return err
		}
		return r.writePlain("✓ phase of %s saved to %s\n", in, out)
	}

	spectrogram, err := p.ExtractSpectrogram(ctx, in, out)
	if err != nil {
		return err
	}
	bins, frames := spectrogram.Magnitude.Dims()
	return r.writePlain("✓ spectrogram of %s saved to %s (%d bins x %d frames, %d Hz)\n", in, out, bins, frames, spectrogram.SampleRate)
}

// AudioReconstruct rebuilds a WAV from the magnitude in IN and the phase in --phase (or IN).
func (r *Runner) AudioReconstruct(ctx context.Context, cmd *cli.Command) error {
	in, out, err := inOutArgs(cmd)
	if err != nil {
		return err
	}

	if err := r.processor().ReconstructFile(in, cmd.String("phase"), out); err != nil {
		return err
	}
	return r.writePlain("✓ reconstructed %s\n", out)
}

func inOutArgs(cmd *cli.Command) (string, string, error) {
	in, out := cmd.StringArg("in"), cmd.StringArg("out")
	if in == "" || out == "" {
		return "", "", fmt.Errorf("%w: IN and OUT paths are required", shared.ErrMissingArgument)
	}
	return in, out, nil
}
