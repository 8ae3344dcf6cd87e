// Package services talks to the two external systems behind a playlist install.
//
// # Spotify
//
// [SpotifyService] implements [MetadataSource]. It authenticates with OAuth2, either as a user (access token,
// refresh token or authorization code) or as the application through the client credentials flow. Every request
// waits on a token bucket limiter before it is sent.
//
// Enrichment never fails a playlist: a failed audio feature lookup yields [models.UnknownFeatures] and a failed
// genre lookup yields ["Unknown"]. Only a failed page fetch is returned to the caller.
//
// # YouTube
//
// [YouTubeService] implements [Searcher] and [Downloader] on top of the yt-dlp executable. Searches use the
// "ytsearchN:" pseudo URL with a flat JSON dump, and downloads extract audio through ffmpeg.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrMissingCredentials] : no usable token or client credentials
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrServiceUnavailable] : yt-dlp failed to run
package services
