package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyOptions    `toml:"spotify"`
	Download    DownloadConfig    `toml:"download"`
	Audio       AudioConfig       `toml:"audio"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last saved user tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// Map returns the credential map accepted by [services.SpotifyService.Authenticate].
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{}
	if s.AccessToken != "" {
		m["access_token"] = s.AccessToken
	}
	if s.RefreshToken != "" {
		m["refresh_token"] = s.RefreshToken
	}
	return m
}

// Update stores the token pair returned by an OAuth exchange.
func (s *SpotifyConfig) Update(accessToken, refreshToken string) {
	s.AccessToken = accessToken
	if refreshToken != "" {
		s.RefreshToken = refreshToken
	}
}

// HasClient reports whether both client credentials are present.
func (s SpotifyConfig) HasClient() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// SpotifyOptions tunes the metadata client.
type SpotifyOptions struct {
	PageSize  int     `toml:"page_size"`
	RateLimit float64 `toml:"rate_limit"`
}

// DownloadConfig controls the playlist installer.
type DownloadConfig struct {
	PoolSize           int    `toml:"pool_size"`
	OutputDir          string `toml:"output_dir"`
	Codec              string `toml:"codec"`
	Bitrate            string `toml:"bitrate"`
	SearchResults      int    `toml:"search_results"`
	SerializeDownloads bool   `toml:"serialize_downloads"`
	FFmpegLocation     string `toml:"ffmpeg_location"`
}

// AudioConfig contains the transform defaults.
type AudioConfig struct {
	TrimDuration float64 `toml:"trim_duration"`
	NFFT         int     `toml:"n_fft"`
	HopLength    int     `toml:"hop_length"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig sets the log level and an optional log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadEnv loads KEY=VALUE pairs from the given .env files into the process environment.
//
// Missing files are ignored. Variables already set are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with the SPOTIPY_* and TAPEDECK_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SPOTIPY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIPY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIPY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv("TAPEDECK_OUTPUT_DIR"); v != "" {
		c.Download.OutputDir = v
	}
	if v := os.Getenv("TAPEDECK_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: TAPEDECK_POOL_SIZE=%q", ErrInvalidConfig, v)
		}
		c.Download.PoolSize = n
	}
	return nil
}

// Validate checks the options that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch {
	case c.Download.PoolSize < 1:
		return fmt.Errorf("%w: download.pool_size must be at least 1", ErrInvalidConfig)
	case c.Download.OutputDir == "":
		return fmt.Errorf("%w: download.output_dir is empty", ErrInvalidConfig)
	case c.Spotify.PageSize < 1 || c.Spotify.PageSize > 100:
		return fmt.Errorf("%w: spotify.page_size must be between 1 and 100", ErrInvalidConfig)
	case c.Audio.NFFT < 2 || c.Audio.NFFT%2 != 0:
		return fmt.Errorf("%w: audio.n_fft must be a positive even number", ErrInvalidConfig)
	case c.Audio.HopLength < 1:
		return fmt.Errorf("%w: audio.hop_length must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// SaveConfig writes the config as TOML to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
