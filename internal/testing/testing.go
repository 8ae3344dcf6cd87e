// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
)

// MockMetadataSource is a test double for [services.MetadataSource]
type MockMetadataSource struct {
	Tracks    map[string][]models.TrackRecord
	Playlists []models.Playlist
	AuthErr   error
	Err       error
}

func (m *MockMetadataSource) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.AuthErr
}

func (m *MockMetadataSource) PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks[playlistID], nil
}

func (m *MockMetadataSource) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, m.Err
}

func (m *MockMetadataSource) Name() string { return "mock" }

// MockSearcher is a test double for [services.Searcher].
//
// Queries missing from Results return one result whose URL is derived from the query.
type MockSearcher struct {
	Results map[string][]services.SearchResult
	Errors  map[string]error
	calls   atomic.Int64
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]services.SearchResult, error) {
	m.calls.Add(1)
	if err := m.Errors[query]; err != nil {
		return nil, err
	}
	if res, ok := m.Results[query]; ok {
		return res, nil
	}
	return []services.SearchResult{{ID: query, URL: "https://video.test/" + strings.ReplaceAll(query, " ", "+")}}, nil
}

// Calls returns the number of searches made.
func (m *MockSearcher) Calls() int { return int(m.calls.Load()) }

// MockDownloader is a test double for [services.Downloader].
//
// A successful download writes an empty file at the template with "%(ext)s" replaced by the profile codec.
// It tracks calls per output template and the peak number of concurrent downloads.
type MockDownloader struct {
	Errors map[string]error // keyed by URL
	Delay  time.Duration

	mu        sync.Mutex
	calls     map[string]int
	active    int
	maxActive int
}

func (m *MockDownloader) Download(ctx context.Context, url, template string, profile services.AudioProfile) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[template]++
	m.active++
	m.maxActive = max(m.maxActive, m.active)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := m.Errors[url]; err != nil {
		return err
	}

	path := strings.ReplaceAll(template, "%(ext)s", profile.Codec)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0644)
}

// Calls returns a copy of the per-template call counts.
func (m *MockDownloader) Calls() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.calls))
	for k, v := range m.calls {
		out[k] = v
	}
	return out
}

// TotalCalls returns the number of downloads attempted.
func (m *MockDownloader) TotalCalls() int {
	n := 0
	for _, v := range m.Calls() {
		n += v
	}
	return n
}

// MaxActive returns the peak number of concurrent downloads.
func (m *MockDownloader) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Track builds a record with unknown features.
func Track(id, name, artist string) models.TrackRecord {
	return models.NewTrackRecord(id, name, artist, "", models.UnknownFeatures())
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// TouchFiles creates empty files with the given names in dir.
func TouchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
