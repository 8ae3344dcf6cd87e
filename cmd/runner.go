package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/audio"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services left nil are built from the loaded config the first time a command needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	metadata   services.MetadataSource
	searcher   services.Searcher
	downloader services.Downloader
	audio      *audio.Processor

	mu sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Metadata   services.MetadataSource
	Searcher   services.Searcher
	Downloader services.Downloader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		metadata:   opts.Metadata,
		searcher:   opts.Searcher,
		downloader: opts.Downloader,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistCommand, installCommand, historyCommand, audioCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the .env file and the config, then applies the log settings.
//
// A missing config file is not an error: defaults plus environment overrides are used.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(cmd.String("env-file")); err != nil {
		r.logger.Warn("failed to load env file", "error", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case errors.Is(err, shared.ErrMissingConfig):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
			config = shared.DefaultConfig()
			if err := config.ApplyEnv(); err != nil {
				return ctx, err
			}
		case err != nil:
			return ctx, err
		}
		r.config = config
	}

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	if r.config.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return ctx, err
		}
		r.SetLogger(fileLogger)
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// SetLogger replaces the logger, keeping the current level.
func (r *Runner) SetLogger(l *log.Logger) {
	if r.logger != nil {
		l.SetLevel(r.logger.GetLevel())
	}
	r.logger = l
}

// metadataSource returns the Spotify client, authenticating with the saved user token or, without one,
// the app's client credentials.
func (r *Runner) metadataSource(ctx context.Context) (services.MetadataSource, error) {
	if r.metadata != nil {
		return r.metadata, nil
	}

	svc, err := services.NewSpotifyServiceFromConfig(r.config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("%w (set them in %s or SPOTIPY_CLIENT_ID and SPOTIPY_CLIENT_SECRET)", err, r.configPath)
	}

	creds := r.config.Credentials.Spotify
	if creds.AccessToken != "" {
		svc.SetTokenRefreshCallback(func(t *oauth2.Token) {
			if err := r.saveTokens(t.AccessToken, t.RefreshToken); err != nil {
				r.logger.Warn("failed to save refreshed token", "error", err)
			}
		})
		err = svc.Authenticate(ctx, creds.Map())
	} else {
		r.logger.Warn("no user token saved, using app credentials; run `tapedeck auth` for private playlists")
		err = svc.AuthenticateApp(ctx)
	}
	if err != nil {
		return nil, err
	}

	r.metadata = svc
	return svc, nil
}

// youtube returns the searcher and downloader, defaulting to yt-dlp.
func (r *Runner) youtube() (services.Searcher, services.Downloader) {
	if r.searcher == nil || r.downloader == nil {
		yt := services.NewYouTubeService(r.config.Download.FFmpegLocation, r.logger)
		if r.searcher == nil {
			r.searcher = yt
		}
		if r.downloader == nil {
			r.downloader = yt
		}
	}
	return r.searcher, r.downloader
}

func (r *Runner) processor() *audio.Processor {
	if r.audio == nil {
		r.audio = audio.NewProcessorFromConfig(r.config, r.logger)
	}
	return r.audio
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", r.config.Database.Path, err)
	}
	return db, nil
}

// saveTokens stores a token pair in the config and writes it back to the config file.
func (r *Runner) saveTokens(accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config == nil {
		return fmt.Errorf("%w: no config loaded", shared.ErrMissingConfig)
	}
	if r.configPath == "" {
		return fmt.Errorf("%w: no config path", shared.ErrMissingArgument)
	}

	r.config.Credentials.Spotify.Update(accessToken, refreshToken)
	return shared.SaveConfig(r.configPath, r.config)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
