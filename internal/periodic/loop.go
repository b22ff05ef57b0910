// Package periodic runs a tick function on a fixed interval: once right away,
// then every interval, never two ticks at a time. The server loops and the
// agent sync loop share it.
package periodic

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/logging"
)

// TickFunc is one unit of periodic work. Errors are logged and the loop
// goes on; the next tick starts from scratch.
type TickFunc func(ctx context.Context) error

type Loop struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(name string, interval time.Duration, tick TickFunc, logger logging.Logger) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger.With("loop", name),
	}
}

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info(ctx, "loop started", "interval", l.interval.String())
	defer l.logger.Info(ctx, "loop stopped")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	if err := l.tick(ctx); err != nil {
		l.logger.Error(ctx, "tick failed", "error", err, "took", time.Since(started).String())
		return
	}
	l.logger.Debug(ctx, "tick done", "took", time.Since(started).String())
}

// Start runs the loop in a goroutine. A second Start is a no-op.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.Run(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}
