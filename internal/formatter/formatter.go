// package formatter converts track records to and from the CSV and JSON dataset formats
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

// Format names accepted by [WriteTracks] and [ReadTracks].
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// TrackHeaders lists the CSV columns: name, artist, id, genre, then the twelve features.
var TrackHeaders = append([]string{"name", "artist", "id", "genre"}, models.FeatureNames...)

// ParseFormat validates a format name, defaulting to JSON when empty.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: format must be json or csv, got %q", shared.ErrInvalidArgument, s)
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// TracksToCSV writes one row per track with unknown values as "Unknown"
func TracksToCSV(tracks []models.TrackRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(TrackHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{track.Name, track.Artist, track.ID, track.Genre}
		for _, f := range track.Features.Slice() {
			record = append(record, f.String())
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToJSON renders tracks as an indented JSON array.
func TracksToJSON(tracks []models.TrackRecord) ([]byte, error) {
	if tracks == nil {
		tracks = []models.TrackRecord{}
	}
	return shared.MarshalJSON(tracks, true)
}

// ParseTracksCSV reads rows written by [TracksToCSV]. Columns are matched by header name.
func ParseTracksCSV(data []byte) ([]models.TrackRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", shared.ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{"name", "artist"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: CSV is missing the %q column", shared.ErrInvalidInput, required)
		}
	}

	cell := func(row []string, name string) string {
		if i, ok := index[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	tracks := make([]models.TrackRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		features := models.UnknownFeatures()
		for i, p := range features.Pointers() {
			f, err := models.ParseFeature(cell(row, models.FeatureNames[i]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d %s: %v", shared.ErrInvalidInput, n+1, models.FeatureNames[i], err)
			}
			*p = f
		}
		tracks = append(tracks, models.NewTrackRecord(
			cell(row, "id"), cell(row, "name"), cell(row, "artist"), cell(row, "genre"), features,
		))
	}
	return tracks, nil
}

// ParseTracksJSON reads an array written by [TracksToJSON].
func ParseTracksJSON(data []byte) ([]models.TrackRecord, error) {
	var tracks []models.TrackRecord
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("%w: failed to decode tracks: %v", shared.ErrInvalidInput, err)
	}
	for i := range tracks {
		if tracks[i].Genre == "" {
			tracks[i].Genre = models.Unknown
		}
	}
	return tracks, nil
}

// ReadTracks loads a dataset file, choosing the parser from its extension.
func ReadTracks(path string) ([]models.TrackRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if FormatFromPath(path) == FormatCSV {
		return ParseTracksCSV(data)
	}
	return ParseTracksJSON(data)
}

// EncodeTracks renders tracks in format.
func EncodeTracks(tracks []models.TrackRecord, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return TracksToCSV(tracks)
	}
	return TracksToJSON(tracks)
}

// WriteTracks encodes tracks and writes them to path.
func WriteTracks(path, format string, tracks []models.TrackRecord) error {
	data, err := EncodeTracks(tracks, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// PlaylistsToText renders playlists as an aligned table.
func PlaylistsToText(playlists []models.Playlist) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tOWNER\tTRACKS")
	for _, p := range playlists {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Owner, p.TrackCount)
	}
	w.Flush()
	return buf.Bytes()
}
