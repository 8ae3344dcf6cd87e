package shared

import "errors"

var (
	ErrNotImplemented = errors.New("not implemented")

	// Configuration errors
	ErrMissingConfig      = errors.New("configuration not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing credentials")

	// Authentication errors
	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTimeout          = errors.New("operation timed out")

	// API and service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrNoResults          = errors.New("no results")
	ErrAlreadyDownloaded  = errors.New("already downloaded")

	// Persistence errors
	ErrRecordNotFound = errors.New("record not found")

	// Audio errors
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrFFmpegNotFound     = errors.New("ffmpeg not found")
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrMissingArchiveItem = errors.New("missing archive entry")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
