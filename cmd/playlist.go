package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tapedeck/internal/formatter"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/urfave/cli/v3"
)

// PlaylistList prints the authenticated user's playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	src, err := r.metadataSource(ctx)
	if err != nil {
		return err
	}

	playlists, err := src.UserPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	if len(playlists) == 0 {
		return r.writePlain("No playlists found\n")
	}
	_, err = r.output.Write(formatter.PlaylistsToText(playlists))
	return err
}

// PlaylistTracks fetches the enriched tracks of a playlist and prints or writes them.
//
// When a page fetch fails after some pages succeeded, the tracks gathered so far are still written and the error
// is logged.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	output := cmd.String("output")

	format := cmd.String("format")
	if format == "" && output != "" {
		format = formatter.FormatFromPath(output)
	}
	format, err := formatter.ParseFormat(format)
	if err != nil {
		return err
	}

	tracks, err := r.fetchTracks(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		if err := r.saveTracks(ctx, id, tracks); err != nil {
			return err
		}
	}

	if output != "" {
		if err := formatter.WriteTracks(output, format, tracks); err != nil {
			return err
		}
		r.logger.Info("tracks written", "path", output, "count", len(tracks), "format", format)
		return nil
	}

	data, err := formatter.EncodeTracks(tracks, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) fetchTracks(ctx context.Context, playlistID string) ([]models.TrackRecord, error) {
	src, err := r.metadataSource(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Info("fetching playlist", "id", playlistID, "source", src.Name())
	tracks, err := src.PlaylistTracks(ctx, playlistID)
	if err != nil {
		if len(tracks) == 0 {
			return nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
		}
		r.logger.Warn("playlist fetch stopped early, continuing with partial tracks", "count", len(tracks), "error", err)
	}
	r.logger.Info("fetched tracks", "id", playlistID, "count", len(tracks))
	return tracks, nil
}

// saveTracks stores tracks keyed by their Spotify ID. Local files have no ID and are left out.
func (r *Runner) saveTracks(ctx context.Context, playlistID string, tracks []models.TrackRecord) error {
	var keyed []models.TrackRecord
	for _, t := range tracks {
		if t.ID == "" {
			r.logger.Warn("not saving local file without a Spotify ID", "name", t.Name, "artist", t.Artist)
			continue
		}
		keyed = append(keyed, t)
	}
	tracks = keyed

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewTrackRepository(db).Upsert(ctx, playlistID, tracks); err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}
	r.logger.Info("tracks saved", "playlist", playlistID, "count", len(tracks), "database", r.config.Database.Path)
	return nil
}
