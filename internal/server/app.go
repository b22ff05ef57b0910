// Package server wires the catalog database, the playlist scheduler, the
// liveness monitor and the operator control surface into one process and
// runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/server/config"
	"github.com/dmitrijs2005/fleetsync/internal/server/content"
	"github.com/dmitrijs2005/fleetsync/internal/server/locks"
	"github.com/dmitrijs2005/fleetsync/internal/server/monitor"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fleetsync/internal/server/scheduler"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/fleetsync/internal/server/grpc"
)

// seams for tests
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	redis     *redis.Client
	scheduler *scheduler.Scheduler
	monitor   *monitor.Monitor
	content   *content.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(c.LogLevel)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm, err := newRepositoryManager(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var locker locks.Locker = locks.Local{}
	if c.RedisURL != "" {
		rl, client, err := locks.NewRedis(c.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.redis = client
		locker = rl
	}

	prober, err := monitor.NewProber(c.ProbeMode, c.ProbePort)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.scheduler = scheduler.New(db, rm, locker, c, logger)
	app.monitor = monitor.New(db, rm, prober, c, logger)
	app.content = content.NewService(db, rm, c, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.ControlAddrGRPC, app.logger, app.scheduler, app.monitor, app.content)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run starts the background loops and the control surface and blocks until
// ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	app.scheduler.Start(ctx)
	app.monitor.Start(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	<-ctx.Done()
	app.scheduler.Stop()
	app.monitor.Stop()
	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
