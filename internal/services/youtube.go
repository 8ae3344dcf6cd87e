// yt-dlp implementation of [Searcher] and [Downloader]
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const youtubeWatchURL = "https://www.youtube.com/watch?v="

// ytdlpRunner executes a configured yt-dlp command. Swapped in tests.
type ytdlpRunner func(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error)

func runYTDLP(ctx context.Context, cmd *ytdlp.Command, args ...string) (*ytdlp.Result, error) {
	return cmd.Run(ctx, args...)
}

// YouTubeService searches YouTube and downloads audio with the yt-dlp executable.
type YouTubeService struct {
	ffmpegLocation string
	logger         *log.Logger
	run            ytdlpRunner
}

// NewYouTubeService creates a service. ffmpegLocation may be empty to use ffmpeg from PATH.
func NewYouTubeService(ffmpegLocation string, logger *log.Logger) *YouTubeService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &YouTubeService{ffmpegLocation: ffmpegLocation, logger: logger, run: runYTDLP}
}

func (y *YouTubeService) Name() string {
	return "YouTube"
}

// Install resolves a yt-dlp executable, downloading a cached copy when none is on PATH.
func (y *YouTubeService) Install(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to install yt-dlp: %v", shared.ErrServiceUnavailable, err)
	}
	y.logger.Info("yt-dlp ready", "path", resolved.Executable, "version", resolved.Version)
	return resolved.Executable, nil
}

// searchEntry is one element of the flat playlist dump of a ytsearch query.
type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
}

type searchDump struct {
	Entries []searchEntry `json:"entries"`
}

// Search returns up to limit videos matching query, best match first.
func (y *YouTubeService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if limit < 1 {
		limit = 1
	}

	cmd := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings().
		SkipDownload()

	result, err := y.run(ctx, cmd, fmt.Sprintf("ytsearch%d:%s", limit, query))
	if err != nil {
		return nil, fmt.Errorf("%w: yt-dlp search: %v", shared.ErrServiceUnavailable, err)
	}

	return parseSearchResults(result.Stdout)
}

// parseSearchResults decodes the single JSON document printed by a flat ytsearch dump.
func parseSearchResults(stdout string) ([]SearchResult, error) {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return nil, nil
	}

	var dump searchDump
	if err := json.Unmarshal([]byte(stdout), &dump); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	results := make([]SearchResult, 0, len(dump.Entries))
	for _, e := range dump.Entries {
		u := e.WebpageURL
		if u == "" {
			u = e.URL
		}
		if u == "" && e.ID != "" {
			u = youtubeWatchURL + e.ID
		}
		if u == "" {
			continue
		}

		channel := e.Channel
		if channel == "" {
			channel = e.Uploader
		}
		results = append(results, SearchResult{ID: e.ID, Title: e.Title, URL: u, Channel: channel, Duration: e.Duration})
	}
	return results, nil
}

// Download fetches the audio of url into template, extracting it with ffmpeg to profile's codec and bitrate.
//
// The template is a yt-dlp output template such as "Youtube/Song - Artist.%(ext)s".
func (y *YouTubeService) Download(ctx context.Context, url, template string, profile AudioProfile) error {
	if profile.Codec == "" {
		profile = DefaultAudioProfile
	}

	cmd := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(profile.Codec).
		AudioQuality(profile.Bitrate).
		Output(template)

	if y.ffmpegLocation != "" {
		cmd = cmd.FFmpegLocation(y.ffmpegLocation)
	}

	result, err := y.run(ctx, cmd, url)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		stderr := ""
		if result != nil {
			stderr = lastLine(result.Stderr)
		}
		return fmt.Errorf("%w: yt-dlp download %s: %v %s", shared.ErrServiceUnavailable, url, err, stderr)
	}

	y.logger.Debug("yt-dlp finished", "url", url, "output", template)
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
