package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

var trackColumns = append([]string{"id", "name", "artist", "genre"}, models.FeatureNames...)

// TrackRepository implements models.Repository[models.TrackRecord].
//
// Records are keyed by track ID and tagged with the playlist they were last fetched from.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert validates and stores tracks for playlistID in one transaction, replacing existing rows with the same ID.
func (r *TrackRepository) Upsert(ctx context.Context, playlistID string, tracks []models.TrackRecord) error {
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validation failed for track %q: %w", t.ID, err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(trackColumns)+1), ", ")
	var updates []string
	for _, c := range trackColumns[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	query := fmt.Sprintf(`
		INSERT INTO tracks (%s, playlist_id)
		VALUES (%s)
		ON CONFLICT(id) DO UPDATE SET %s, playlist_id = excluded.playlist_id, updated_at = ?
	`, strings.Join(trackColumns, ", "), placeholders, strings.Join(updates, ", "))

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare track insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, t := range tracks {
			args := []any{t.ID, t.Name, t.Artist, t.Genre}
			for _, f := range t.Features.Slice() {
				args = append(args, f.Null())
			}
			args = append(args, playlistID, now)

			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to upsert track %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(id string) (models.TrackRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE id = ?", strings.Join(trackColumns, ", "))
	t, err := scanTrack(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("%w: track %s", shared.ErrRecordNotFound, id)
	}
	return t, err
}

// List retrieves every stored track ordered by insertion.
func (r *TrackRepository) List() ([]models.TrackRecord, error) {
	return r.query(fmt.Sprintf("SELECT %s FROM tracks ORDER BY rowid ASC", strings.Join(trackColumns, ", ")))
}

// ListByPlaylist retrieves the tracks last fetched from playlistID, in playlist order.
func (r *TrackRepository) ListByPlaylist(playlistID string) ([]models.TrackRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE playlist_id = ? ORDER BY rowid ASC", strings.Join(trackColumns, ", "))
	return r.query(query, playlistID)
}

// Count returns the number of stored tracks.
func (r *TrackRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

func (r *TrackRepository) query(query string, args ...any) ([]models.TrackRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	return collect(rows, scanTrack)
}

// scanTrack scans a row selected with trackColumns into a [models.TrackRecord]
func scanTrack(row rowScanner) (models.TrackRecord, error) {
	var (
		t        models.TrackRecord
		features = make([]sql.NullFloat64, len(models.FeatureNames))
	)

	dest := []any{&t.ID, &t.Name, &t.Artist, &t.Genre}
	for i := range features {
		dest = append(dest, &features[i])
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan track: %w", err)
	}

	for i, p := range t.Features.Pointers() {
		*p = models.FeatureFromNull(features[i])
	}
	return t, nil
}
