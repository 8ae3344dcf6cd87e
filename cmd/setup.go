package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded default config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if dir := filepath.Dir(r.configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIPY_CLIENT_ID / SPOTIPY_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'tapedeck auth' to log in\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path

	if cmd.Bool("status") || cmd.Bool("rollback") {
		db, err := shared.NewDatabase(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if cmd.Bool("rollback") {
			if err := shared.RollbackMigration(db); err != nil {
				return fmt.Errorf("failed to roll back migration: %w", err)
			}
			r.logger.Info("rolled back latest migration", "path", path)
		}
		return r.printMigrationStatus(db)
	}

	r.logger.Info("initializing database", "path", path)
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", path)
	return r.printMigrationStatus(db)
}

func (r *Runner) printMigrationStatus(db *sql.DB) error {
	statuses, err := shared.MigrationStatuses(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlainHeader("Migrations")
	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("%s %04d %s\n", mark, s.Version, s.Name)
	}
	return nil
}

// SetupYTDLP makes sure a yt-dlp executable is available.
func (r *Runner) SetupYTDLP(ctx context.Context, cmd *cli.Command) error {
	path, err := services.NewYouTubeService(r.config.Download.FFmpegLocation, r.logger).Install(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ yt-dlp available at %s\n", path)
}
