package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
)

func sampleTracks() []models.TrackRecord {
	f := models.UnknownFeatures()
	f.Tempo = models.NewFeature(128)
	f.Danceability = models.NewFeature(0.73)
	f.Loudness = models.NewFeature(-5.2)

	return []models.TrackRecord{
		models.NewTrackRecord("id1", "Dont Stop Remix", "Artist, The", "pop", f),
		models.NewTrackRecord("id2", "Quiet", "Nobody", "", models.UnknownFeatures()),
	}
}

func TestTracksToCSV(t *testing.T) {
	data, err := TracksToCSV(sampleTracks())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), data)
	}

	wantHeader := "name,artist,id,genre,tempo,valence,liveness,acousticness,danceability,energy," +
		"speechiness,instrumentalness,loudness,key,mode,time_signature"
	if lines[0] != wantHeader {
		t.Errorf("header = %q", lines[0])
	}
	if len(strings.Split(lines[0], ",")) != 16 {
		t.Errorf("expected 16 columns")
	}

	want := `Dont Stop Remix,"Artist, The",id1,pop,128,Unknown,Unknown,Unknown,0.73,Unknown,Unknown,Unknown,-5.2,Unknown,Unknown,Unknown`
	if lines[1] != want {
		t.Errorf("row = %q\nwant  %q", lines[1], want)
	}
	if !strings.HasPrefix(lines[2], "Quiet,Nobody,id2,Unknown,Unknown") {
		t.Errorf("unknown row = %q", lines[2])
	}
}

func TestTracksToJSON(t *testing.T) {
	data, err := TracksToJSON(sampleTracks())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 records, got %d", len(raw))
	}
	if len(raw[0]) != 16 {
		t.Errorf("expected 16 fields, got %d: %v", len(raw[0]), raw[0])
	}
	if raw[0]["tempo"] != float64(128) || raw[0]["valence"] != models.Unknown {
		t.Errorf("unexpected feature values %v", raw[0])
	}

	t.Run("empty", func(t *testing.T) {
		data, err := TracksToJSON(nil)
		if err != nil || strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %q (%v)", data, err)
		}
	})
}

func TestReadWriteTracks(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "tracks."+format)
			in := sampleTracks()

			if err := WriteTracks(path, format, in); err != nil {
				t.Fatalf("WriteTracks failed: %v", err)
			}

			got, err := ReadTracks(path)
			if err != nil {
				t.Fatalf("ReadTracks failed: %v", err)
			}
			if len(got) != len(in) {
				t.Fatalf("expected %d tracks, got %d", len(in), len(got))
			}
			for i := range in {
				if got[i] != in[i] {
					t.Errorf("track %d = %+v, want %+v", i, got[i], in[i])
				}
			}
		})
	}
}

func TestParseTracksCSV(t *testing.T) {
	t.Run("minimal columns", func(t *testing.T) {
		got, err := ParseTracksCSV([]byte("artist,name\nA,Song\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Song" || got[0].Artist != "A" || got[0].Genre != models.Unknown {
			t.Errorf("unexpected tracks %+v", got)
		}
		if !got[0].AllUnknown() {
			t.Error("expected unknown features")
		}
	})

	t.Run("missing name column", func(t *testing.T) {
		_, err := ParseTracksCSV([]byte("artist\nA\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bad feature", func(t *testing.T) {
		_, err := ParseTracksCSV([]byte("name,artist,tempo\nS,A,fast\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in    string
		want  string
		isErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}

	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.isErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}

	if FormatFromPath("a/b.CSV") != FormatCSV || FormatFromPath("tracks") != FormatJSON {
		t.Error("FormatFromPath picked the wrong format")
	}
}

func TestPlaylistsToText(t *testing.T) {
	out := string(PlaylistsToText([]models.Playlist{{ID: "p1", Name: "Road Trip", Owner: "me", TrackCount: 12}}))
	if !strings.Contains(out, "Road Trip") || !strings.Contains(out, "12") || !strings.HasPrefix(out, "ID") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
