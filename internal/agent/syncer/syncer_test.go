package syncer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/agent/manifest"
	"github.com/dmitrijs2005/fleetsync/internal/agent/media"
	"github.com/dmitrijs2005/fleetsync/internal/agent/repositories/snapshot"
	"github.com/dmitrijs2005/fleetsync/internal/agent/service"
	"github.com/dmitrijs2005/fleetsync/internal/agent/state"
	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	desired []contentapi.Playlist
	err     error
	since   []*time.Time
}

func (f *fakeCatalog) FetchDesired(ctx context.Context, since *time.Time) ([]contentapi.Playlist, error) {
	f.since = append(f.since, since)
	if f.err != nil {
		return nil, f.err
	}
	return f.desired, nil
}

// fakeSource serves "data" for every video, truncated for ids in short.
type fakeSource struct {
	mu     sync.Mutex
	opened []int64
	short  map[int64]bool
	fail   map[int64]bool
}

func (f *fakeSource) Open(ctx context.Context, v contentapi.Video) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.opened = append(f.opened, v.VideoID)
	f.mu.Unlock()

	if f.fail[v.VideoID] {
		return nil, 0, errors.New("connection refused")
	}
	body := "data"
	if f.short[v.VideoID] {
		body = "da"
	}
	return io.NopCloser(strings.NewReader(body)), -1, nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

type fakeRestarter struct {
	calls int
	err   error
}

func (f *fakeRestarter) Restart(ctx context.Context) error {
	f.calls++
	return f.err
}

type failingStore struct {
	StateStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, snap snapshot.Snapshot, at time.Time) error {
	return f.saveErr
}

type env struct {
	catalog   *fakeCatalog
	source    *fakeSource
	media     *media.Store
	manifests *manifest.Writer
	restarter *fakeRestarter
	store     *state.Store
	clock     *timex.Fixed
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	e := &env{
		catalog:   &fakeCatalog{},
		source:    &fakeSource{},
		restarter: &fakeRestarter{},
		clock:     &timex.Fixed{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}

	var err error
	e.media, err = media.NewStore(filepath.Join(dir, "media"), e.source, 0)
	require.NoError(t, err)
	e.manifests, err = manifest.NewWriter(filepath.Join(dir, "playlists"))
	require.NoError(t, err)
	e.store, err = state.Open(context.Background(), ":memory:", logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.store.Close() })
	return e
}

func (e *env) syncer(opts Options) *Syncer {
	return e.syncerWith(e.store, opts)
}

func (e *env) syncerWith(store StateStore, opts Options) *Syncer {
	opts.Interval = time.Hour
	s := New(e.catalog, e.media, e.manifests, e.restarter, store, opts, logging.NewDiscard())
	s.clock = e.clock
	return s
}

func (e *env) put(t *testing.T, videoID int64) {
	t.Helper()
	v := contentapi.Video{VideoID: videoID}
	require.NoError(t, os.WriteFile(e.media.Path(v), []byte("data"), 0o640))
}

func TestRunCycle_AddedVideo(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.put(t, 1)
	e.put(t, 2)
	require.NoError(t, e.store.Save(ctx, snapshot.Snapshot{7: {1, 2}}, e.clock.T.Add(-time.Hour)))

	e.catalog.desired = []contentapi.Playlist{playlist(7, 1, 2, 3)}
	s := e.syncer(Options{})

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, e.source.opened)
	assert.Equal(t, 1, rep.Changed)
	assert.Equal(t, 1, rep.Downloaded)
	assert.Equal(t, 1, rep.ManifestsChanged)
	assert.True(t, rep.Restarted)
	assert.Equal(t, 1, e.restarter.calls)

	data, err := os.ReadFile(e.manifests.Path(7))
	require.NoError(t, err)
	want := "#EXTM3U\n" +
		filepath.Join(e.media.Dir, "1.mp4") + "\n" +
		filepath.Join(e.media.Dir, "2.mp4") + "\n" +
		filepath.Join(e.media.Dir, "3.mp4") + "\n"
	assert.Equal(t, want, string(data))

	st, err := e.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{7: {1, 2, 3}}, st.Snapshot)
	assert.True(t, e.clock.T.Equal(*st.LastSync))
}

func TestRunCycle_SecondRunIsIdle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10, 11), playlist(2, 11)}
	s := e.syncer(Options{DownloadConcurrency: 4})

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.New)
	assert.Equal(t, 2, rep.Downloaded, "shared video fetched once")
	assert.Equal(t, 1, e.restarter.calls)

	e.clock.Add(time.Minute)
	rep, err = s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Unchanged)
	assert.Zero(t, rep.Downloaded)
	assert.Zero(t, rep.ManifestsChanged)
	assert.False(t, rep.ContentChanged())
	assert.False(t, rep.Restarted)
	assert.Equal(t, 1, e.restarter.calls)
	assert.Equal(t, 2, e.source.count())

	require.Len(t, e.catalog.since, 2)
	assert.Nil(t, e.catalog.since[0])
	require.NotNil(t, e.catalog.since[1])
	assert.True(t, e.clock.T.Add(-time.Minute).Equal(*e.catalog.since[1]))
}

func TestRunCycle_ResumesFromPersistedState(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(5, 1)}

	_, err := e.syncer(Options{}).RunCycle(ctx)
	require.NoError(t, err)

	// a restarted agent reads the snapshot back and has nothing to do
	rep, err := e.syncer(Options{}).RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Unchanged)
	assert.False(t, rep.Restarted)
	assert.Equal(t, 1, e.restarter.calls)
}

func TestRunCycle_ContentRefChangeIsNotAChange(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	s := e.syncer(Options{})

	e.catalog.desired = []contentapi.Playlist{{
		PlaylistID: 3,
		Videos:     []contentapi.Video{{VideoID: 1, Size: 4, ContentRef: "https://cdn/x/1.mkv?sig=a"}},
	}}
	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Downloaded)
	require.Equal(t, 1, e.restarter.calls)

	// presigning failed server-side, the ref falls back to the catalog endpoint
	e.catalog.desired = []contentapi.Playlist{{
		PlaylistID: 3,
		Videos:     []contentapi.Video{{VideoID: 1, Size: 4, ContentRef: ""}},
	}}
	rep, err = s.RunCycle(ctx)
	require.NoError(t, err)

	assert.Zero(t, rep.Downloaded)
	assert.Zero(t, rep.ManifestsChanged)
	assert.False(t, rep.Restarted)
	assert.Equal(t, 1, e.source.count())
	assert.Equal(t, 1, e.restarter.calls)

	data, err := os.ReadFile(e.manifests.Path(3))
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n"+filepath.Join(e.media.Dir, "1.mkv")+"\n", string(data))
}

func TestRunCycle_TruncatedDownloadNotPublished(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.source.short = map[int64]bool{2: true}
	e.catalog.desired = []contentapi.Playlist{{
		PlaylistID: 1,
		Videos: []contentapi.Video{
			{VideoID: 1, Size: 4},
			{VideoID: 2, Size: 4},
		},
	}}
	s := e.syncer(Options{})

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Downloaded)
	assert.Equal(t, 1, rep.FailedDownloads)

	data, err := os.ReadFile(e.manifests.Path(1))
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n"+filepath.Join(e.media.Dir, "1.mp4")+"\n", string(data))
	assert.NoFileExists(t, filepath.Join(e.media.Dir, "2.mp4"))

	entries, err := os.ReadDir(e.media.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// the failed video is retried on the next cycle even though the
	// playlist is now unchanged
	e.source.short = nil
	rep, err = s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Unchanged)
	assert.Equal(t, 1, rep.Downloaded)
	assert.Equal(t, 1, rep.ManifestsChanged)
	assert.True(t, rep.Restarted)
}

func TestRunCycle_FetchFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	require.NoError(t, e.store.Save(ctx, snapshot.Snapshot{7: {1}}, e.clock.T.Add(-time.Hour)))
	e.catalog.err = common.ErrCatalogUnavailable
	s := e.syncer(Options{})

	_, err := s.RunCycle(ctx)
	require.ErrorIs(t, err, common.ErrCatalogUnavailable)
	assert.Zero(t, e.restarter.calls)

	st, err := e.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{7: {1}}, st.Snapshot)
	assert.True(t, e.clock.T.Add(-time.Hour).Equal(*st.LastSync))
}

func TestRunCycle_RemovedPlaylist(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10), playlist(2, 20)}
	s := e.syncer(Options{})

	_, err := s.RunCycle(ctx)
	require.NoError(t, err)
	require.FileExists(t, e.manifests.Path(2))

	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, 1, rep.ManifestsChanged)
	assert.True(t, rep.Restarted)
	assert.NoFileExists(t, e.manifests.Path(2))
	assert.FileExists(t, filepath.Join(e.media.Dir, "20.mp4"), "media is retained unless pruning is enabled")
}

func TestRunCycle_StrayManifestRemoved(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	s := e.syncer(Options{})

	_, err := s.RunCycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, e.restarter.calls)

	// left behind by a cycle whose snapshot was never persisted
	_, err = e.manifests.Write(99, []string{"/gone.mp4"})
	require.NoError(t, err)

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)

	assert.Zero(t, rep.Removed)
	assert.Equal(t, 1, rep.ManifestsChanged)
	assert.True(t, rep.Restarted)
	assert.Equal(t, 2, e.restarter.calls)
	assert.NoFileExists(t, e.manifests.Path(99))
	assert.FileExists(t, e.manifests.Path(1))
}

func TestRunCycle_PruneExpiredMedia(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10), playlist(2, 20)}
	s := e.syncer(Options{PruneExpiredMedia: true})

	_, err := s.RunCycle(ctx)
	require.NoError(t, err)

	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Pruned)
	assert.NoFileExists(t, filepath.Join(e.media.Dir, "20.mp4"))
	assert.FileExists(t, filepath.Join(e.media.Dir, "10.mp4"))
}

func TestRunCycle_RestartFailureIsReported(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.restarter.err = service.ErrPermission
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	s := e.syncer(Options{})

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Restarted)
	assert.ErrorIs(t, rep.RestartErr, service.ErrPermission)

	st, err := e.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Snapshot{1: {10}}, st.Snapshot)
}

func TestRunCycle_DownloadFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.source.fail = map[int64]bool{1: true}
	e.catalog.desired = []contentapi.Playlist{playlist(1, 1, 2), playlist(2, 3)}
	s := e.syncer(Options{DownloadConcurrency: 2})

	rep, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Downloaded)
	assert.Equal(t, 1, rep.FailedDownloads)
	assert.Equal(t, 2, rep.ManifestsChanged)
}

func TestRunCycle_SaveFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	store := &failingStore{StateStore: e.store, saveErr: errors.New("disk full")}
	s := e.syncerWith(store, Options{})

	rep, err := s.RunCycle(ctx)
	require.ErrorContains(t, err, "disk full")
	assert.True(t, rep.Restarted)

	// in memory the snapshot advanced, so the change is not replayed
	rep, err = s.RunCycle(ctx)
	require.Error(t, err)
	assert.False(t, rep.Restarted)
	assert.Equal(t, 1, e.restarter.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	e := newEnv(t)
	e.catalog.desired = []contentapi.Playlist{playlist(1, 10)}
	s := e.syncer(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return e.source.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	s.Stop()
}
