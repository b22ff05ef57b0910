// Package syncer runs the agent's sync cycle: fetch the desired content,
// diff it against the local snapshot, download what is missing, rebuild
// the manifests, restart playback if anything changed and persist the new
// snapshot.
package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/agent/repositories/snapshot"
	"github.com/dmitrijs2005/fleetsync/internal/agent/service"
	"github.com/dmitrijs2005/fleetsync/internal/agent/state"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/periodic"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Catalog is the desired-state source.
type Catalog interface {
	FetchDesired(ctx context.Context, since *time.Time) ([]contentapi.Playlist, error)
}

// Media is the local video store.
type Media interface {
	Path(v contentapi.Video) string
	Has(v contentapi.Video) bool
	Ensure(ctx context.Context, v contentapi.Video) (bool, error)
	Prune(keep map[string]struct{}) (int, error)
}

// Manifests writes per-playlist playback manifests.
type Manifests interface {
	Write(playlistID int64, paths []string) (bool, error)
	RemoveExcept(keep map[int64]struct{}) (int, error)
}

// StateStore persists the snapshot between cycles and restarts.
type StateStore interface {
	Load(ctx context.Context) (*state.State, error)
	Save(ctx context.Context, snap snapshot.Snapshot, syncedAt time.Time) error
}

// Options tune a Syncer. Zero values are usable.
type Options struct {
	Interval            time.Duration
	DownloadConcurrency int
	PruneExpiredMedia   bool
}

// Report summarises one cycle.
type Report struct {
	CycleID          string
	StartedAt        time.Time
	New              int
	Changed          int
	Unchanged        int
	Removed          int
	Downloaded       int
	FailedDownloads  int
	ManifestsChanged int
	ManifestErrors   int
	Pruned           int
	Restarted        bool
	RestartErr       error
}

// ContentChanged reports whether the cycle warrants a playback restart.
func (r *Report) ContentChanged() bool {
	return r.New+r.Changed+r.Removed+r.Downloaded+r.ManifestsChanged > 0
}

type Syncer struct {
	catalog   Catalog
	media     Media
	manifests Manifests
	restarter service.Restarter
	store     StateStore
	opts      Options
	clock     timex.Clock
	logger    logging.Logger
	loop      *periodic.Loop

	mu      sync.Mutex
	current *state.State
}

func New(catalog Catalog, media Media, manifests Manifests, restarter service.Restarter, store StateStore, opts Options, logger logging.Logger) *Syncer {
	if opts.DownloadConcurrency < 1 {
		opts.DownloadConcurrency = 1
	}
	s := &Syncer{
		catalog:   catalog,
		media:     media,
		manifests: manifests,
		restarter: restarter,
		store:     store,
		opts:      opts,
		clock:     timex.Real(),
		logger:    logger.With("module", "syncer"),
	}
	s.loop = periodic.New("sync", opts.Interval, func(ctx context.Context) error {
		_, err := s.RunCycle(ctx)
		return err
	}, s.logger)
	return s
}

// Run syncs once right away and then every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) { s.loop.Run(ctx) }

func (s *Syncer) Start(ctx context.Context) { s.loop.Start(ctx) }

func (s *Syncer) Stop() { s.loop.Stop() }

// RunCycle performs one full sync. A fetch failure aborts before anything is
// touched. Download, manifest and restart failures are counted in the
// report; only a failure to persist the snapshot is returned alongside it.
func (s *Syncer) RunCycle(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := &Report{CycleID: uuid.NewString(), StartedAt: s.clock.Now()}
	logger := s.logger.With("cycle", rep.CycleID)

	if err := s.loadState(ctx); err != nil {
		return rep, err
	}

	desired, err := s.catalog.FetchDesired(ctx, s.current.LastSync)
	if err != nil {
		logger.Warn(ctx, "fetch desired state failed", "error", err)
		return rep, err
	}

	diff := ComputeDiff(s.current.Snapshot, desired)
	rep.New, rep.Changed = len(diff.New), len(diff.Changed)
	rep.Unchanged, rep.Removed = len(diff.Unchanged), len(diff.Removed)
	logger.Debug(ctx, "diff computed",
		"new", diff.New, "changed", diff.Changed, "removed", diff.Removed)

	s.download(ctx, logger, desired, rep)
	s.rebuildManifests(ctx, logger, desired, rep)

	if s.opts.PruneExpiredMedia {
		s.prune(ctx, logger, desired, rep)
	}

	if rep.ContentChanged() {
		s.restart(ctx, logger, rep)
	}

	next := toSnapshot(desired)
	syncedAt := s.clock.Now()
	// the in-memory view moves on even if the write fails, so the next
	// cycle does not report the same change again
	last := syncedAt
	s.current = &state.State{LastSync: &last, Snapshot: next}

	if err := s.store.Save(ctx, next, syncedAt); err != nil {
		logger.Error(ctx, "persist state failed", "error", err)
		return rep, err
	}

	logger.Info(ctx, "sync cycle done",
		"new", rep.New, "changed", rep.Changed, "removed", rep.Removed,
		"downloaded", rep.Downloaded, "failed_downloads", rep.FailedDownloads,
		"manifests_changed", rep.ManifestsChanged, "restarted", rep.Restarted)
	return rep, nil
}

func (s *Syncer) loadState(ctx context.Context) error {
	if s.current != nil {
		return nil
	}
	st, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if st.Snapshot == nil {
		st.Snapshot = snapshot.Snapshot{}
	}
	s.current = st
	return nil
}

// download fetches every desired video that is not yet on disk. Videos are
// deduplicated by local path. All downloads settle before it returns.
func (s *Syncer) download(ctx context.Context, logger logging.Logger, desired []contentapi.Playlist, rep *Report) {
	seen := make(map[string]struct{})
	var pending []contentapi.Video
	for _, p := range desired {
		for _, v := range p.Videos {
			path := s.media.Path(v)
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			if !s.media.Has(v) {
				pending = append(pending, v)
			}
		}
	}
	if len(pending) == 0 {
		return
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.opts.DownloadConcurrency)

	for _, v := range pending {
		g.Go(func() error {
			fetched, err := s.media.Ensure(ctx, v)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.FailedDownloads++
				logger.Warn(ctx, "download failed", "video_id", v.VideoID, "error", err)
			case fetched:
				rep.Downloaded++
				logger.Debug(ctx, "downloaded", "video_id", v.VideoID)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// rebuildManifests writes a manifest per desired playlist and deletes every
// other manifest in the directory, including ones no snapshot knows about.
func (s *Syncer) rebuildManifests(ctx context.Context, logger logging.Logger, desired []contentapi.Playlist, rep *Report) {
	keep := make(map[int64]struct{}, len(desired))
	for _, p := range desired {
		keep[p.PlaylistID] = struct{}{}

		paths := make([]string, 0, len(p.Videos))
		for _, v := range p.Videos {
			if s.media.Has(v) {
				paths = append(paths, s.media.Path(v))
			}
		}
		changed, err := s.manifests.Write(p.PlaylistID, paths)
		if err != nil {
			rep.ManifestErrors++
			logger.Error(ctx, "write manifest failed", "playlist_id", p.PlaylistID, "error", err)
			continue
		}
		if changed {
			rep.ManifestsChanged++
		}
	}

	n, err := s.manifests.RemoveExcept(keep)
	rep.ManifestsChanged += n
	if err != nil {
		rep.ManifestErrors++
		logger.Error(ctx, "remove stale manifests failed", "error", err)
	}
}

func (s *Syncer) prune(ctx context.Context, logger logging.Logger, desired []contentapi.Playlist, rep *Report) {
	keep := make(map[string]struct{})
	for _, p := range desired {
		for _, v := range p.Videos {
			keep[filepath.Base(s.media.Path(v))] = struct{}{}
		}
	}
	n, err := s.media.Prune(keep)
	rep.Pruned = n
	if err != nil {
		logger.Warn(ctx, "prune media failed", "error", err)
	}
}

func (s *Syncer) restart(ctx context.Context, logger logging.Logger, rep *Report) {
	err := s.restarter.Restart(ctx)
	if err == nil {
		rep.Restarted = true
		logger.Info(ctx, "playback service restarted")
		return
	}

	rep.RestartErr = err
	switch {
	case errors.Is(err, service.ErrPermission):
		logger.Error(ctx, "restart not permitted", "error", err)
	case errors.Is(err, service.ErrUnavailable):
		logger.Warn(ctx, "restart unavailable", "error", err)
	default:
		logger.Error(ctx, "restart failed", "error", err)
	}
}
