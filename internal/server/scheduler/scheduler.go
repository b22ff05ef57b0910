// Package scheduler flips playlist availability from their start and
// expiration windows. Each tick recomputes the desired state from scratch
// and applies every flip in a single transaction.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/periodic"
	"github.com/dmitrijs2005/fleetsync/internal/server/config"
	"github.com/dmitrijs2005/fleetsync/internal/server/locks"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
)

const lockKey = "fleetsync:scheduler:reconcile"

// forceRetryDelay is how long ForceReconcile waits before retrying while
// another replica holds the lock.
var forceRetryDelay = 200 * time.Millisecond

// Result describes one reconciliation tick.
type Result struct {
	At          time.Time     `json:"at"`
	Due         int           `json:"due"`
	Activated   []models.Flip `json:"activated"`
	Deactivated []models.Flip `json:"deactivated"`
	// Anomalies counts playlists with an inverted window seen this tick.
	Anomalies int `json:"anomalies"`
	// Raced counts guarded updates that found the row already flipped.
	Raced int `json:"raced"`
}

// Changed reports whether the tick flipped anything.
func (r *Result) Changed() bool {
	return len(r.Activated)+len(r.Deactivated) > 0
}

type Scheduler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	locker      locks.Locker
	lockTTL     time.Duration
	clock       timex.Clock
	logger      logging.Logger
	loop        *periodic.Loop

	// mu serialises ticks inside this process; locker covers other replicas.
	mu sync.Mutex
}

func New(db *sql.DB, rm repomanager.RepositoryManager, locker locks.Locker, cfg *config.Config, logger logging.Logger) *Scheduler {
	if locker == nil {
		locker = locks.Local{}
	}
	s := &Scheduler{
		db:          db,
		repomanager: rm,
		locker:      locker,
		lockTTL:     cfg.LockTTL,
		clock:       timex.Real(),
		logger:      logger.With("module", "scheduler"),
	}
	s.loop = periodic.New("scheduler", cfg.SchedulerInterval, s.tick, s.logger)
	return s
}

// Start runs reconciliation in the background: once now, then every interval.
func (s *Scheduler) Start(ctx context.Context) { s.loop.Start(ctx) }

// Stop halts the loop and waits for a running tick.
func (s *Scheduler) Stop() { s.loop.Stop() }

// Run blocks running the loop until ctx is done.
func (s *Scheduler) Run(ctx context.Context) { s.loop.Run(ctx) }

func (s *Scheduler) tick(ctx context.Context) error {
	_, err := s.Reconcile(ctx, s.clock.Now())
	if errors.Is(err, common.ErrLocked) {
		s.logger.Debug(ctx, "another replica is reconciling, tick skipped")
		return nil
	}
	if err != nil {
		return err
	}
	s.reportInverted(ctx)
	return nil
}

// reportInverted warns about every inverted window, including playlists that
// already sit inactive and so never show up as due.
func (s *Scheduler) reportInverted(ctx context.Context) {
	ids, err := s.repomanager.Playlists(s.db).ListInverted(ctx)
	if err != nil {
		s.logger.Warn(ctx, "list inverted playlists failed", "error", err)
		return
	}
	if len(ids) > 0 {
		s.logger.Warn(ctx, "playlists with inverted windows never activate",
			"count", len(ids), "playlist_ids", ids)
	}
}

// Reconcile brings is_active of every windowed playlist in line with now.
// Due rows are locked with SELECT ... FOR UPDATE and flipped with a guarded
// update, all inside one transaction. Any error rolls the tick back.
// It returns common.ErrLocked if another replica holds the reconcile lock.
func (s *Scheduler) Reconcile(ctx context.Context, now time.Time) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.locker.TryLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &Result{At: now}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Playlists(tx)

		due, err := repo.SelectDue(ctx, now)
		if err != nil {
			return err
		}
		res.Due = len(due)

		for _, p := range due {
			if p.InvertedWindow() {
				res.Anomalies++
				s.logger.Warn(ctx, "playlist window is inverted, keeping it inactive",
					"playlist_id", p.ID, "start_date", p.StartDate, "expiration_date", p.ExpirationDate)
			}

			should := p.ShouldBeActive(now)
			if should == p.IsActive {
				continue
			}

			applied, err := repo.SetActive(ctx, p.ID, should)
			if err != nil {
				return err
			}
			if !applied {
				res.Raced++
				continue
			}

			flip := models.Flip{PlaylistID: p.ID, Name: p.Name, Active: should, Reason: p.WindowReason(now)}
			if should {
				res.Activated = append(res.Activated, flip)
			} else {
				res.Deactivated = append(res.Deactivated, flip)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "reconciliation rolled back", "error", err)
		return nil, err
	}

	if res.Changed() {
		s.logger.Info(ctx, "playlists reconciled",
			"activated", len(res.Activated), "deactivated", len(res.Deactivated), "raced", res.Raced)
	} else {
		s.logger.Debug(ctx, "playlists already consistent", "due", res.Due)
	}
	return res, nil
}

// ForceReconcile runs a reconciliation right away. Unlike the periodic tick
// it waits for a lock held by another replica instead of skipping.
func (s *Scheduler) ForceReconcile(ctx context.Context) (*Result, error) {
	for {
		res, err := s.Reconcile(ctx, s.clock.Now())
		if !errors.Is(err, common.ErrLocked) {
			return res, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(forceRetryDelay):
		}
	}
}

// Status reports whether a playlist is in the state its window demands.
func (s *Scheduler) Status(ctx context.Context, playlistID int64) (*models.PlaylistStatus, error) {
	p, err := s.repomanager.Playlists(s.db).GetByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.InvertedWindow() {
		s.logger.Warn(ctx, "playlist window is inverted", "playlist_id", p.ID)
	}
	return p.StatusAt(s.clock.Now()), nil
}
