package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History prints the recorded install outcomes, oldest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewDownloadRepository(db)

	var downloads []models.Download
	if s := cmd.String("status"); s != "" {
		status, err := models.ParseDownloadStatus(s)
		if err != nil {
			return fmt.Errorf("invalid --status: %w", err)
		}
		downloads, err = repo.ListByStatus(status)
		if err != nil {
			return err
		}
	} else if downloads, err = repo.List(); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(downloads, true)
	}

	if len(downloads) == 0 {
		return r.writePlain("No downloads recorded\n")
	}

	r.writePlainHeader("Download history")
	for _, d := range downloads {
		r.writePlain("%s  %-10s %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Status, d.TrackKey)
		if d.Error != "" {
			r.writePlain("    error: %s\n", d.Error)
		}
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		return err
	}
	return r.writePlainln("%d downloaded, %d skipped, %d without results, %d failed",
		counts[models.StatusDownloaded], counts[models.StatusSkipped], counts[models.StatusNoResults], counts[models.StatusFailed])
}
