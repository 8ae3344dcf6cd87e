package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

func TestParseSearchResults(t *testing.T) {
	tc := []struct {
		name   string
		stdout string
		want   []SearchResult
	}{
		{
			name:   "empty output",
			stdout: "  \n",
			want:   nil,
		},
		{
			name:   "no entries",
			stdout: `{"_type":"playlist","entries":[]}`,
			want:   []SearchResult{},
		},
		{
			name: "flat entries",
			stdout: `{"_type":"playlist","entries":[
				{"id":"abc123","title":"Song - Artist (Official)","url":"https://www.youtube.com/watch?v=abc123","channel":"Artist","duration":215},
				{"id":"def456","title":"Song live","uploader":"Fan"}
			]}`,
			want: []SearchResult{
				{ID: "abc123", Title: "Song - Artist (Official)", URL: "https://www.youtube.com/watch?v=abc123", Channel: "Artist", Duration: 215},
				{ID: "def456", Title: "Song live", URL: "https://www.youtube.com/watch?v=def456", Channel: "Fan"},
			},
		},
		{
			name:   "webpage url preferred",
			stdout: `{"entries":[{"id":"x","url":"x","webpage_url":"https://youtu.be/x"}]}`,
			want:   []SearchResult{{ID: "x", URL: "https://youtu.be/x"}},
		},
		{
			name:   "entry without id or url skipped",
			stdout: `{"entries":[{"title":"ghost"}]}`,
			want:   []SearchResult{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSearchResults(tt.stdout)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d (%+v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("result %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseSearchResults("{not json"); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestYouTubeService(t *testing.T) {
	newService := func(run ytdlpRunner) *YouTubeService {
		y := NewYouTubeService("", log.New(io.Discard))
		y.run = run
		return y
	}

	t.Run("Search builds ytsearch query", func(t *testing.T) {
		var gotArgs []string
		y := newService(func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
			gotArgs = args
			return &ytdlp.Result{Stdout: `{"entries":[{"id":"abc"}]}`}, nil
		})

		results, err := y.Search(context.Background(), "Song Artist", 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gotArgs) != 1 || gotArgs[0] != "ytsearch3:Song Artist" {
			t.Errorf("unexpected args %v", gotArgs)
		}
		if len(results) != 1 || results[0].URL != youtubeWatchURL+"abc" {
			t.Errorf("unexpected results %+v", results)
		}
	})

	t.Run("Search empty query", func(t *testing.T) {
		y := newService(nil)
		if _, err := y.Search(context.Background(), "  ", 1); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Search failure", func(t *testing.T) {
		y := newService(func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
			return nil, errors.New("exit status 1")
		})
		if _, err := y.Search(context.Background(), "q", 1); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Download passes url", func(t *testing.T) {
		var gotArgs []string
		y := newService(func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
			gotArgs = args
			return &ytdlp.Result{}, nil
		})

		if err := y.Download(context.Background(), "https://youtu.be/x", "out/a.%(ext)s", AudioProfile{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gotArgs) != 1 || gotArgs[0] != "https://youtu.be/x" {
			t.Errorf("unexpected args %v", gotArgs)
		}
	})

	t.Run("Download failure", func(t *testing.T) {
		y := newService(func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
			return &ytdlp.Result{Stderr: "WARNING: x\nERROR: Video unavailable"}, errors.New("exit status 1")
		})

		err := y.Download(context.Background(), "https://youtu.be/x", "out/a.%(ext)s", DefaultAudioProfile)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Fatalf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Download cancelled", func(t *testing.T) {
		y := newService(func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
			return nil, context.Canceled
		})

		err := y.Download(context.Background(), "u", "t", DefaultAudioProfile)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
