// package services wraps the external systems tapedeck talks to: the Spotify Web API and yt-dlp.
package services

import (
	"context"

	"github.com/desertthunder/tapedeck/internal/models"
)

// MetadataSource fetches enriched track records and playlist listings.
type MetadataSource interface {
	// Authenticate establishes a user session from an "access_token" (with optional "refresh_token") or an "auth_code".
	Authenticate(ctx context.Context, credentials map[string]string) error

	// PlaylistTracks returns every track of a playlist with features and genre filled in.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRecord, error)

	// UserPlaylists lists the playlists of the authenticated user.
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// SearchResult is one candidate video returned by a search.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Channel  string  `json:"channel,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// AudioProfile selects the codec and bitrate the downloader transcodes to.
type AudioProfile struct {
	Codec   string
	Bitrate string
}

// DefaultAudioProfile is mp3 at 192 kbps.
var DefaultAudioProfile = AudioProfile{Codec: "mp3", Bitrate: "192"}

// Searcher finds videos matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Downloader fetches a video's audio to the output template, transcoding to profile.
type Downloader interface {
	Download(ctx context.Context, url, template string, profile AudioProfile) error
}
