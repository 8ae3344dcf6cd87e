package tasks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// TitleSet is a concurrency-safe set of track keys.
type TitleSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewTitleSet creates a set holding keys.
func NewTitleSet(keys ...string) *TitleSet {
	s := &TitleSet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// Reserve inserts key and reports whether it was absent. Check and insert happen under one lock.
func (s *TitleSet) Reserve(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *TitleSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *TitleSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// Keys returns the keys in sorted order.
func (s *TitleSet) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	slices.Sort(keys)
	return keys
}

// LoadDownloadedTitles scans dir (not recursively) and returns the base names of regular files whose
// extension is exactly ext. "Song.MP3" does not match ".mp3".
//
// A missing directory yields an empty set. The result is a snapshot; later writes to dir are not observed.
func LoadDownloadedTitles(dir, ext string) (*TitleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTitleSet(), nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	set := NewTitleSet()
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ext {
			continue
		}
		set.keys[strings.TrimSuffix(name, ext)] = struct{}{}
	}
	return set, nil
}
