// Spotify Web API implementation of [MetadataSource]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultPageSize    = 100
	defaultRateLimit   = 10.0
	defaultRedirectURI = "http://localhost:3000/callback"
)

var spotifyScopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	IsLocal bool            `json:"is_local"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracksPage is one page of /playlists/{id}/tracks.
type SpotifyPlaylistTracksPage struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// Owner is the user owning a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// SpotifyAudioFeatures is the /audio-features/{id} payload. Missing values decode as nil.
type SpotifyAudioFeatures struct {
	Tempo            *float64 `json:"tempo"`
	Valence          *float64 `json:"valence"`
	Liveness         *float64 `json:"liveness"`
	Acousticness     *float64 `json:"acousticness"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Speechiness      *float64 `json:"speechiness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Loudness         *float64 `json:"loudness"`
	Key              *float64 `json:"key"`
	Mode             *float64 `json:"mode"`
	TimeSignature    *float64 `json:"time_signature"`
}

// Features converts the payload into a [models.Features].
func (a SpotifyAudioFeatures) Features() models.Features {
	var f models.Features
	values := []*float64{
		a.Tempo, a.Valence, a.Liveness, a.Acousticness, a.Danceability, a.Energy,
		a.Speechiness, a.Instrumentalness, a.Loudness, a.Key, a.Mode, a.TimeSignature,
	}
	for i, p := range f.Pointers() {
		if values[i] != nil {
			*p = models.NewFeature(*values[i])
		}
	}
	return f
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(u, "/") }
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = u }
}

// WithHTTPClient sets the client used for token exchanges and as the base transport for API calls.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithRateLimit caps requests per second. A non-positive value disables the limiter.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithPageSize sets the playlist page size (1 to 100).
func WithPageSize(n int) SpotifyOption {
	return func(s *SpotifyService) {
		if n > 0 && n <= defaultPageSize {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger used for degraded lookups.
func WithLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) { s.logger = l }
}

// SpotifyService implements [MetadataSource] for the Spotify Web API.
// Uses [oauth2] for authentication and paces every request through a [rate.Limiter].
type SpotifyService struct {
	config         *oauth2.Config
	baseClient     *http.Client
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	pageSize       int
	logger         *log.Logger
	onTokenRefresh func(*oauth2.Token)

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 client credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       spotifyScopes,
			Endpoint:     oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL},
		},
		baseURL:  spotifyBaseURL,
		limiter:  rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		pageSize: defaultPageSize,
		logger:   shared.NewLogger(nil),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewSpotifyServiceFromConfig builds a service from the loaded configuration.
func NewSpotifyServiceFromConfig(cfg *shared.Config, logger *log.Logger) (*SpotifyService, error) {
	creds := cfg.Credentials.Spotify
	return NewSpotifyService(map[string]string{
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
		"redirect_uri":  creds.RedirectURI,
	}, WithRateLimit(cfg.Spotify.RateLimit), WithPageSize(cfg.Spotify.PageSize), WithLogger(logger))
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetTokenRefreshCallback registers fn to be called whenever the token source hands out a new token.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Token returns the current token, or nil before authentication.
func (s *SpotifyService) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	if s.baseClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
	}
	return ctx
}

func (s *SpotifyService) setToken(t *oauth2.Token) {
	s.mu.Lock()
	s.token = t
	s.mu.Unlock()
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	ctx = s.clientContext(ctx)

	var token *oauth2.Token
	switch {
	case credentials["access_token"] != "":
		token = &oauth2.Token{AccessToken: credentials["access_token"], RefreshToken: credentials["refresh_token"]}
	case credentials["auth_code"] != "":
		t, err := s.config.Exchange(ctx, credentials["auth_code"])
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		token = t
	default:
		return fmt.Errorf("%w: access_token or auth_code", shared.ErrMissingCredentials)
	}

	s.setToken(token)
	src := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		last:     token.AccessToken,
		callback: s.refreshed,
	}
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src))
	return nil
}

// AuthenticateApp authenticates as the application with the client credentials flow.
//
// App tokens cannot read private playlists or list the user's playlists.
func (s *SpotifyService) AuthenticateApp(ctx context.Context) error {
	ctx = s.clientContext(ctx)
	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}

	token, err := cc.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: client credentials: %v", shared.ErrAuthFailed, err)
	}

	s.setToken(token)
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, cc.TokenSource(ctx)))
	return nil
}

func (s *SpotifyService) refreshed(t *oauth2.Token) {
	s.setToken(t)
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(t)
	}
}

// refreshableTokenSource reports tokens that differ from the last one seen.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// apiError carries the HTTP status of a failed request.
type apiError struct {
	status int
}

func (e *apiError) Error() string { return fmt.Sprintf("spotify API error: status %d", e.status) }

// doRequest performs a rate-limited, authenticated GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, &apiError{status: resp.StatusCode})
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// AudioFeatures fetches the audio features of one track.
//
// Any failure returns [models.UnknownFeatures] and is logged. An empty ID (a local file) skips the request.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackID string) models.Features {
	if trackID == "" {
		return models.UnknownFeatures()
	}

	var payload *SpotifyAudioFeatures
	if err := s.doRequest(ctx, "/audio-features/"+url.PathEscape(trackID), &payload); err != nil {
		s.logger.Warn("audio features unavailable", "track_id", trackID, "error", err)
		return models.UnknownFeatures()
	}
	if payload == nil {
		s.logger.Warn("audio features unavailable", "track_id", trackID, "error", "empty response")
		return models.UnknownFeatures()
	}
	return payload.Features()
}

// ArtistGenres returns an artist's genres, or ["Unknown"] when the lookup fails or the list is empty.
func (s *SpotifyService) ArtistGenres(ctx context.Context, artistID string) []string {
	if artistID == "" {
		return []string{models.Unknown}
	}

	var artist SpotifyArtist
	if err := s.doRequest(ctx, "/artists/"+url.PathEscape(artistID), &artist); err != nil {
		s.logger.Warn("artist genres unavailable", "artist_id", artistID, "error", err)
		return []string{models.Unknown}
	}
	if len(artist.Genres) == 0 {
		return []string{models.Unknown}
	}
	return artist.Genres
}

// PlaylistTracks pages through a playlist and enriches each track.
//
// Paging starts at offset 0 and stops at the first empty page. Enrichment runs one track at a time.
// When a page fetch fails, the records gathered so far are returned with the error.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.TrackRecord, error) {
	var records []models.TrackRecord
	logger := shared.WithLogger(s.logger, "playlist", playlistID)

	for offset := 0; ; offset += s.pageSize {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), s.pageSize, offset)

		var page SpotifyPlaylistTracksPage
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
				return records, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
			}
			return records, fmt.Errorf("failed to fetch playlist page at offset %d: %w", offset, err)
		}

		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Track == nil {
				logger.Warn("skipping unavailable playlist item", "offset", offset, "added_at", item.AddedAt)
				continue
			}
			records = append(records, s.enrich(ctx, *item.Track))
		}
	}

	logger.Debug("fetched playlist", "tracks", len(records))
	return records, nil
}

// enrich builds a [models.TrackRecord] from a playlist track, looking up features and the primary artist's genre.
//
// Local files carry no track or artist ID; their lookups are skipped and the fields stay unknown.
func (s *SpotifyService) enrich(ctx context.Context, track SpotifyTrack) models.TrackRecord {
	var artistID, artistName string
	if len(track.Artists) > 0 {
		artistID, artistName = track.Artists[0].ID, track.Artists[0].Name
	}

	features := s.AudioFeatures(ctx, track.ID)
	genres := s.ArtistGenres(ctx, artistID)

	return models.NewTrackRecord(
		track.ID,
		shared.NormalizeTitle(track.Name),
		shared.NormalizeTitle(artistName),
		genres[0],
		features,
	)
}

// UserPlaylists lists the current user's playlists, paging with the same offset cursor as [SpotifyService.PlaylistTracks].
func (s *SpotifyService) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	limit := min(s.pageSize, 50)
	var playlists []models.Playlist

	for offset := 0; ; offset += limit {
		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset), &page); err != nil {
			return playlists, err
		}

		if len(page.Items) == 0 {
			break
		}

		for _, p := range page.Items {
			owner := p.Owner.DisplayName
			if owner == "" {
				owner = p.Owner.ID
			}
			playlists = append(playlists, models.Playlist{
				ID:         p.ID,
				Name:       p.Name,
				Owner:      owner,
				TrackCount: p.Tracks.Total,
			})
		}
	}

	return playlists, nil
}
