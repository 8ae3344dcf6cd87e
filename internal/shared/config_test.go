package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./tapedeck.db" {
			t.Errorf("expected database path ./tapedeck.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Download.PoolSize != 15 {
			t.Errorf("expected pool size 15, got %d", config.Download.PoolSize)
		}

		if config.Download.OutputDir != "Youtube" {
			t.Errorf("expected output dir Youtube, got %s", config.Download.OutputDir)
		}

		if config.Download.Codec != "mp3" || config.Download.Bitrate != "192" {
			t.Errorf("expected mp3/192, got %s/%s", config.Download.Codec, config.Download.Bitrate)
		}

		if config.Spotify.PageSize != 100 {
			t.Errorf("expected page size 100, got %d", config.Spotify.PageSize)
		}

		if config.Audio.NFFT != 2048 || config.Audio.HopLength != 512 {
			t.Errorf("expected 2048/512, got %d/%d", config.Audio.NFFT, config.Audio.HopLength)
		}

		if config.Audio.TrimDuration != 40 {
			t.Errorf("expected trim duration 40, got %v", config.Audio.TrimDuration)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		partial := `[download]
pool_size = 4
output_dir = "/tmp/music"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
`
		if err := os.WriteFile(configPath, []byte(partial), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Download.PoolSize != 4 {
			t.Errorf("expected pool size 4, got %d", config.Download.PoolSize)
		}
		if config.Download.OutputDir != "/tmp/music" {
			t.Errorf("expected output dir /tmp/music, got %s", config.Download.OutputDir)
		}
		if config.Download.Codec != "mp3" {
			t.Errorf("expected default codec mp3, got %s", config.Download.Codec)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[download\npool_size = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIPY_CLIENT_ID", "env_id")
		t.Setenv("SPOTIPY_CLIENT_SECRET", "env_secret")
		t.Setenv("SPOTIPY_REDIRECT_URI", "http://127.0.0.1:9999/callback")
		t.Setenv("TAPEDECK_OUTPUT_DIR", "downloads")
		t.Setenv("TAPEDECK_POOL_SIZE", "3")

		config := DefaultConfig()
		if err := config.ApplyEnv(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_id" || config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("credentials not overridden: %+v", config.Credentials.Spotify)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:9999/callback" {
			t.Errorf("redirect uri not overridden: %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Download.OutputDir != "downloads" || config.Download.PoolSize != 3 {
			t.Errorf("download overrides not applied: %+v", config.Download)
		}
	})

	t.Run("ApplyEnv rejects bad pool size", func(t *testing.T) {
		t.Setenv("TAPEDECK_POOL_SIZE", "zero")

		if err := DefaultConfig().ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("TAPEDECK_TEST_ONLY=loaded\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("TAPEDECK_TEST_ONLY", "")
		os.Unsetenv("TAPEDECK_TEST_ONLY")

		if err := LoadEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := os.Getenv("TAPEDECK_TEST_ONLY"); got != "loaded" {
			t.Errorf("expected loaded, got %q", got)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.Update("access", "refresh")

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		creds := loaded.Credentials.Spotify.Map()
		if creds["access_token"] != "access" || creds["refresh_token"] != "refresh" {
			t.Errorf("tokens not persisted: %v", creds)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "zero pool", mutate: func(c *Config) { c.Download.PoolSize = 0 }},
			{name: "empty output", mutate: func(c *Config) { c.Download.OutputDir = "" }},
			{name: "page size too large", mutate: func(c *Config) { c.Spotify.PageSize = 101 }},
			{name: "odd n_fft", mutate: func(c *Config) { c.Audio.NFFT = 1025 }},
			{name: "zero hop", mutate: func(c *Config) { c.Audio.HopLength = 0 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
