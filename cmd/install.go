package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/desertthunder/tapedeck/internal/formatter"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/desertthunder/tapedeck/internal/tasks"
	"github.com/desertthunder/tapedeck/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/tapedeck-tui.log"

// Install downloads every track of a playlist, or of a track file, into the output directory.
func (r *Runner) Install(ctx context.Context, cmd *cli.Command) error {
	tracks, source, err := r.installTracks(ctx, cmd)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return r.writePlain("No tracks to install from %s\n", source)
	}

	opts := tasks.InstallOptionsFromConfig(r.config.Download)
	if out := cmd.String("out"); out != "" {
		opts.OutputDir = out
	}
	if pool := cmd.Int("pool"); pool > 0 {
		opts.PoolSize = pool
	}

	if cmd.Bool("tui") {
		logPath := r.config.Log.File
		if logPath == "" {
			logPath = tuiLogFile
		}
		fileLogger, err := shared.NewFileLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	searcher, downloader := r.youtube()
	installer := tasks.NewInstaller(searcher, downloader, opts, r.logger)

	if !cmd.Bool("no-record") {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		installer.WithRecorder(repositories.NewDownloadRepository(db))
	}

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.InstallResult, error) {
		return installer.Install(ctx, tracks, progress)
	}

	var result *tasks.InstallResult
	if cmd.Bool("tui") {
		result, err = ui.RunInstall(ctx, "Installing "+source, len(tracks), run)
	} else {
		result, err = r.installWithProgress(ctx, len(tracks), run)
	}
	if result != nil {
		r.writeInstallSummary(result)
	}
	return err
}

// installTracks loads tracks from --input or fetches them for --id.
func (r *Runner) installTracks(ctx context.Context, cmd *cli.Command) ([]models.TrackRecord, string, error) {
	id, input := cmd.String("id"), cmd.String("input")

	switch {
	case id == "" && input == "":
		return nil, "", fmt.Errorf("%w: --id or --input is required", shared.ErrMissingArgument)
	case id != "" && input != "":
		return nil, "", fmt.Errorf("%w: cannot specify both --id and --input", shared.ErrInvalidArgument)
	case input != "":
		tracks, err := formatter.ReadTracks(input)
		if err != nil {
			return nil, "", err
		}
		r.logger.Info("loaded tracks", "path", input, "count", len(tracks))
		return tracks, filepath.Base(input), nil
	}

	tracks, err := r.fetchTracks(ctx, id)
	return tracks, "playlist " + id, err
}

// installWithProgress prints each progress message as a line while the install runs.
func (r *Runner) installWithProgress(ctx context.Context, total int, run ui.InstallFunc) (*tasks.InstallResult, error) {
	progress := make(chan tasks.ProgressUpdate, total+8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.InstallDone {
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := run(ctx, progress)
	close(progress)
	wg.Wait()
	return result, err
}

func (r *Runner) writeInstallSummary(result *tasks.InstallResult) {
	r.writePlainln("✓ %s", result.Summary())
	r.writePlain("Output directory: %s\n", result.OutputDir)

	var problems []tasks.TrackResult
	for _, res := range result.Results {
		if res.Status == models.StatusFailed || res.Status == models.StatusNoResults {
			problems = append(problems, res)
		}
	}
	if len(problems) == 0 {
		return
	}

	r.writePlainln("Not downloaded:")
	for _, res := range problems {
		if res.Err != nil {
			r.writePlain("  %-10s %s (%v)\n", res.Status, res.Key, res.Err)
		} else {
			r.writePlain("  %-10s %s\n", res.Status, res.Key)
		}
	}
}
