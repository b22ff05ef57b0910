// Package agent wires the edge sync agent: local state, catalog client,
// media store, manifests and the playback restarter, driven by the sync
// loop until a termination signal arrives.
package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fleetsync/internal/agent/catalog"
	"github.com/dmitrijs2005/fleetsync/internal/agent/config"
	"github.com/dmitrijs2005/fleetsync/internal/agent/manifest"
	"github.com/dmitrijs2005/fleetsync/internal/agent/media"
	"github.com/dmitrijs2005/fleetsync/internal/agent/service"
	"github.com/dmitrijs2005/fleetsync/internal/agent/state"
	"github.com/dmitrijs2005/fleetsync/internal/agent/syncer"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
)

// newRestarter is a seam for tests.
var newRestarter = func(c *config.Config) service.Restarter {
	return service.NewSystemctl(c.ServiceUnit, c.UseSudo)
}

type App struct {
	config *config.Config
	logger logging.Logger
	store  *state.Store
	syncer *syncer.Syncer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSON(c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	logger = logger.With("device_id", c.DeviceID)

	store, err := state.Open(ctx, c.StatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("state init error: %w", err)
	}

	cat := catalog.NewClient(c.CatalogURL, c.DeviceID, c.RequestTimeout)
	fetcher := media.NewFetcher(cat.VideoURL, media.S3Config{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	mediaStore, err := media.NewStore(c.MediaDir, fetcher, c.DownloadTimeout)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("media dir error: %w", err)
	}
	if n, err := mediaStore.CleanPartials(); err != nil {
		logger.Warn(ctx, "clean partial downloads failed", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "removed partial downloads", "count", n)
	}

	manifests, err := manifest.NewWriter(c.ManifestDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("manifest dir error: %w", err)
	}

	s := syncer.New(cat, mediaStore, manifests, newRestarter(c), store, syncer.Options{
		Interval:            c.SyncInterval,
		DownloadConcurrency: c.DownloadConcurrency,
		PruneExpiredMedia:   c.PruneExpiredMedia,
	}, logger)

	return &App{config: c, logger: logger, store: store, syncer: s}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// RunOnce performs a single sync cycle and closes the app.
func (app *App) RunOnce(ctx context.Context) (*syncer.Report, error) {
	defer app.Close()
	return app.syncer.RunCycle(ctx)
}

// Run syncs immediately and then every interval until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting agent...", "catalog", app.config.CatalogURL)
	app.initSignalHandler(cancelFunc)

	app.syncer.Run(ctx)

	app.Close()
	app.logger.Info(context.Background(), "Agent stopped")
}

func (app *App) Close() {
	if app.store != nil {
		_ = app.store.Close()
		app.store = nil
	}
}
