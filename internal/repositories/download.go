package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

const downloadColumns = "id, track_key, track_id, video_url, path, status, error, created_at"

// DownloadRepository implements models.Repository[models.Download] and records installer outcomes.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Record inserts d with a generated ID and creation time.
func (r *DownloadRepository) Record(ctx context.Context, d *models.Download) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	d.ID = shared.GenerateID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO downloads (` + downloadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.TrackKey,
		d.TrackID,
		d.VideoURL,
		d.Path,
		string(d.Status),
		d.Error,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}
	return nil
}

// Get retrieves a download by ID
func (r *DownloadRepository) Get(id string) (models.Download, error) {
	d, err := scanDownload(r.db.QueryRow("SELECT "+downloadColumns+" FROM downloads WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("%w: download %s", shared.ErrRecordNotFound, id)
	}
	return d, err
}

// List retrieves every download, oldest first.
func (r *DownloadRepository) List() ([]models.Download, error) {
	return r.query("SELECT " + downloadColumns + " FROM downloads ORDER BY rowid ASC")
}

// ListByStatus retrieves downloads with the given status, oldest first.
func (r *DownloadRepository) ListByStatus(status models.DownloadStatus) ([]models.Download, error) {
	query := "SELECT " + downloadColumns + " FROM downloads WHERE status = ? ORDER BY rowid ASC"
	return r.query(query, string(status))
}

// CountByStatus returns the number of downloads per status.
func (r *DownloadRepository) CountByStatus() (map[models.DownloadStatus]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM downloads GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}
	defer rows.Close()

	counts := map[models.DownloadStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan download count: %w", err)
		}
		counts[models.DownloadStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

func (r *DownloadRepository) query(query string, args ...any) ([]models.Download, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	return collect(rows, scanDownload)
}

// scanDownload scans a row selected with downloadColumns into a [models.Download]
func scanDownload(row rowScanner) (models.Download, error) {
	var (
		d      models.Download
		status string
	)

	err := row.Scan(&d.ID, &d.TrackKey, &d.TrackID, &d.VideoURL, &d.Path, &status, &d.Error, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("failed to scan download: %w", err)
	}

	if d.Status, err = models.ParseDownloadStatus(status); err != nil {
		return d, fmt.Errorf("failed to scan download: %w", err)
	}
	return d, nil
}
