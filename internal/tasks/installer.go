package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DownloadRecorder persists the outcome of each processed track.
type DownloadRecorder interface {
	Record(ctx context.Context, d *models.Download) error
}

// InstallOptions controls where and how tracks are downloaded.
type InstallOptions struct {
	OutputDir          string
	PoolSize           int
	SearchResults      int
	Profile            services.AudioProfile
	SerializeDownloads bool // hold a mutex around each download
}

// InstallOptionsFromConfig maps the [download] config section.
func InstallOptionsFromConfig(cfg shared.DownloadConfig) InstallOptions {
	return InstallOptions{
		OutputDir:          cfg.OutputDir,
		PoolSize:           cfg.PoolSize,
		SearchResults:      cfg.SearchResults,
		Profile:            services.AudioProfile{Codec: cfg.Codec, Bitrate: cfg.Bitrate},
		SerializeDownloads: cfg.SerializeDownloads,
	}
}

func (o InstallOptions) withDefaults() InstallOptions {
	if o.OutputDir == "" {
		o.OutputDir = "Youtube"
	}
	if o.PoolSize < 1 {
		o.PoolSize = 15
	}
	if o.SearchResults < 1 {
		o.SearchResults = 1
	}
	if o.Profile.Codec == "" {
		o.Profile = services.DefaultAudioProfile
	}
	return o
}

// TrackResult is the outcome of processing one track.
type TrackResult struct {
	Track    models.TrackRecord
	Key      string
	Status   models.DownloadStatus
	VideoURL string
	Path     string
	Err      error
}

// InstallResult collects per-track results in input order with outcome counts.
type InstallResult struct {
	OutputDir  string
	Results    []TrackResult
	Total      int
	Downloaded int
	Skipped    int
	NoResults  int
	Failed     int
}

// Summary is a one-line description of the counts.
func (r *InstallResult) Summary() string {
	return fmt.Sprintf("%d tracks: %d downloaded, %d skipped, %d without results, %d failed",
		r.Total, r.Downloaded, r.Skipped, r.NoResults, r.Failed)
}

func (r *InstallResult) count() {
	r.Downloaded, r.Skipped, r.NoResults, r.Failed = 0, 0, 0, 0
	for _, res := range r.Results {
		switch res.Status {
		case models.StatusDownloaded:
			r.Downloaded++
		case models.StatusSkipped:
			r.Skipped++
		case models.StatusNoResults:
			r.NoResults++
		default:
			r.Failed++
		}
	}
}

// Installer downloads the audio of playlist tracks with a bounded pool of workers.
type Installer struct {
	searcher   services.Searcher
	downloader services.Downloader
	recorder   DownloadRecorder
	logger     *log.Logger
	opts       InstallOptions
	downloadMu sync.Mutex
}

// NewInstaller creates an Installer. A nil logger writes to stderr.
func NewInstaller(searcher services.Searcher, downloader services.Downloader, opts InstallOptions, logger *log.Logger) *Installer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Installer{
		searcher:   searcher,
		downloader: downloader,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// WithRecorder sets the recorder that receives every track outcome.
func (i *Installer) WithRecorder(r DownloadRecorder) *Installer {
	i.recorder = r
	return i
}

// Options returns the effective options.
func (i *Installer) Options() InstallOptions {
	return i.opts
}

// Install ensures the output directory exists, snapshots the files already in it and processes every track.
//
// Track failures are reported in the result and never stop other tracks. The returned error is non-nil only when
// setup fails or ctx is cancelled; in the latter case the partial result is returned with it.
func (i *Installer) Install(ctx context.Context, tracks []models.TrackRecord, progress chan<- ProgressUpdate) (*InstallResult, error) {
	if i.searcher == nil || i.downloader == nil {
		return nil, fmt.Errorf("%w: searcher and downloader are required", shared.ErrServiceUnavailable)
	}

	dir := i.opts.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	set, err := LoadDownloadedTitles(dir, i.opts.Profile.Codec)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, scanLibraryUpdate(dir, set.Len()))

	total := len(tracks)
	result := &InstallResult{OutputDir: dir, Results: make([]TrackResult, total), Total: total}
	sendProgress(progress, installStartUpdate(total, i.opts.PoolSize))

	var (
		g    errgroup.Group
		done atomic.Int64
	)
	g.SetLimit(i.opts.PoolSize)

	for idx, track := range tracks {
		if ctx.Err() != nil {
			for j := idx; j < total; j++ {
				result.Results[j] = TrackResult{
					Track:  tracks[j],
					Key:    shared.TrackKey(tracks[j].Name, tracks[j].Artist),
					Status: models.StatusFailed,
					Err:    ctx.Err(),
				}
			}
			break
		}

		g.Go(func() error {
			res := i.processTrack(ctx, track, set)
			result.Results[idx] = res
			i.record(ctx, res)
			sendProgress(progress, trackDoneUpdate(int(done.Add(1)), total, res))
			return nil
		})
	}
	_ = g.Wait()

	result.count()
	i.logger.Info("all tracks processed", "total", total, "downloaded", result.Downloaded,
		"skipped", result.Skipped, "no_results", result.NoResults, "failed", result.Failed)
	sendProgress(progress, installDoneUpdate(result))

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("install interrupted: %w", err)
	}
	return result, nil
}

// processTrack searches for a track, reserves its key and downloads it when the key is new.
func (i *Installer) processTrack(ctx context.Context, track models.TrackRecord, set *TitleSet) TrackResult {
	key := shared.TrackKey(track.Name, track.Artist)
	res := TrackResult{Track: track, Key: key}
	logger := shared.WithLogger(i.logger, "track", key)

	if ctx.Err() != nil {
		res.Status, res.Err = models.StatusFailed, ctx.Err()
		return res
	}

	found, err := i.searcher.Search(ctx, track.Query(), i.opts.SearchResults)
	if err != nil {
		logger.Warn("search failed", "query", track.Query(), "error", err)
		res.Status, res.Err = models.StatusFailed, err
		return res
	}
	if len(found) == 0 {
		logger.Info("no results", "query", track.Query())
		res.Status, res.Err = models.StatusNoResults, shared.ErrNoResults
		return res
	}
	res.VideoURL = found[0].URL

	if !set.Reserve(key) {
		logger.Debug("already downloaded")
		res.Status, res.Err = models.StatusSkipped, shared.ErrAlreadyDownloaded
		return res
	}

	template := filepath.Join(i.opts.OutputDir, key+".%(ext)s")
	if err := i.download(ctx, res.VideoURL, template); err != nil {
		logger.Warn("download failed", "url", res.VideoURL, "error", err)
		res.Status, res.Err = models.StatusFailed, err
		return res
	}

	res.Status = models.StatusDownloaded
	res.Path = filepath.Join(i.opts.OutputDir, key+"."+i.opts.Profile.Codec)
	logger.Info("downloaded", "path", res.Path)
	return res
}

func (i *Installer) download(ctx context.Context, url, template string) error {
	if i.opts.SerializeDownloads {
		i.downloadMu.Lock()
		defer i.downloadMu.Unlock()
	}
	return i.downloader.Download(ctx, url, template, i.opts.Profile)
}

func (i *Installer) record(ctx context.Context, res TrackResult) {
	if i.recorder == nil {
		return
	}

	d := &models.Download{
		TrackKey: res.Key,
		TrackID:  res.Track.ID,
		VideoURL: res.VideoURL,
		Path:     res.Path,
		Status:   res.Status,
	}
	if res.Err != nil && !errors.Is(res.Err, shared.ErrNoResults) && !errors.Is(res.Err, shared.ErrAlreadyDownloaded) {
		d.Error = res.Err.Error()
	}

	if err := i.recorder.Record(context.WithoutCancel(ctx), d); err != nil {
		i.logger.Warn("failed to record download", "track", res.Key, "error", err)
	}
}
