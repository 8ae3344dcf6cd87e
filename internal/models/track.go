package models

import (
	"errors"
	"fmt"
	"time"
)

var errMissingField = errors.New("missing required field")

// TrackRecord is a playlist track enriched with its primary artist's genre and audio features.
type TrackRecord struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	ID     string `json:"id"`
	Genre  string `json:"genre"`
	Features
}

// NewTrackRecord builds a record, falling back to [Unknown] for an empty genre.
func NewTrackRecord(id, name, artist, genre string, features Features) TrackRecord {
	if genre == "" {
		genre = Unknown
	}
	return TrackRecord{Name: name, Artist: artist, ID: id, Genre: genre, Features: features}
}

func (t TrackRecord) Key() string { return t.ID }

func (t TrackRecord) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: id", errMissingField)
	case t.Name == "":
		return fmt.Errorf("%w: name", errMissingField)
	}
	return nil
}

// Query returns the video search query for the track.
func (t TrackRecord) Query() string {
	return t.Name + " " + t.Artist
}

// Playlist summarizes a playlist returned by the metadata service.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
}

// DownloadStatus is the outcome of processing one track.
type DownloadStatus string

const (
	StatusDownloaded DownloadStatus = "downloaded"
	StatusSkipped    DownloadStatus = "skipped"
	StatusNoResults  DownloadStatus = "no_results"
	StatusFailed     DownloadStatus = "failed"
)

// ParseDownloadStatus validates a stored status string.
func ParseDownloadStatus(s string) (DownloadStatus, error) {
	switch st := DownloadStatus(s); st {
	case StatusDownloaded, StatusSkipped, StatusNoResults, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown download status %q", s)
}

// Download records one installer outcome.
type Download struct {
	ID        string         `json:"id"`
	TrackKey  string         `json:"track_key"`
	TrackID   string         `json:"track_id"`
	VideoURL  string         `json:"video_url,omitempty"`
	Path      string         `json:"path,omitempty"`
	Status    DownloadStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (d Download) Key() string { return d.ID }

func (d Download) Validate() error {
	if d.TrackKey == "" {
		return fmt.Errorf("%w: track_key", errMissingField)
	}
	if _, err := ParseDownloadStatus(string(d.Status)); err != nil {
		return err
	}
	return nil
}
