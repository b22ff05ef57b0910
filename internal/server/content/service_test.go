package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	sc "github.com/dmitrijs2005/fleetsync/internal/server/config"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
	contentrepo "github.com/dmitrijs2005/fleetsync/internal/server/repositories/content"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
	"github.com/stretchr/testify/require"
)

type fakeContentRepo struct {
	contentrepo.Repository
	rows     []*models.ContentRow
	err      error
	deviceID string
	now      time.Time
}

func (f *fakeContentRepo) SelectDesired(_ context.Context, deviceID string, now time.Time) ([]*models.ContentRow, error) {
	f.deviceID = deviceID
	f.now = now
	return f.rows, f.err
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	c *fakeContentRepo
}

func (m *fakeRepoManager) Content(dbx.DBTX) contentrepo.Repository { return m.c }

var now = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T, repo *fakeContentRepo) *Service {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &sc.Config{}
	cfg.LoadDefaults()
	s := NewService(db, &fakeRepoManager{c: repo}, cfg, logging.NewDiscard())
	s.clock = &timex.Fixed{T: now}
	return s
}

// stubPresign replaces the AWS seams; presigned URLs echo bucket and key.
func stubPresign(t *testing.T, loadErr, presignErr error) *int {
	t.Helper()
	origLoad, origNew, origPre, origGet := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignGetObject = origLoad, origNew, origPre, origGet
	})

	loads := 0
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		loads++
		return aws.Config{}, loadErr
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000/" {
			t.Fatalf("BaseEndpoint not applied")
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		if po.Expires != PresignExpiry {
			t.Fatalf("unexpected expiry %v", po.Expires)
		}
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/" + *in.Bucket + "/" + *in.Key + "?sig=1"}, nil
	}
	return &loads
}

func TestDesiredContent_GroupsAndResolvesRefs(t *testing.T) {
	exp := now.Add(24 * time.Hour)
	repo := &fakeContentRepo{rows: []*models.ContentRow{
		{PlaylistID: 7, PlaylistName: "Spring", PlaylistExpirationDate: &exp, VideoID: 1, VideoTitle: "a", SizeBytes: 10, StoragePath: "videos/1.mp4"},
		{PlaylistID: 7, PlaylistName: "Spring", PlaylistExpirationDate: &exp, VideoID: 2, VideoTitle: "b", SizeBytes: 20, StoragePath: "s3://archive/2.mp4"},
		{PlaylistID: 7, PlaylistName: "Spring", PlaylistExpirationDate: &exp, VideoID: 3, VideoTitle: "c", StoragePath: "https://cdn.example/3.mp4"},
		{PlaylistID: 8, PlaylistName: "Empty"},
	}}
	loads := stubPresign(t, nil, nil)
	s := newService(t, repo)

	got, err := s.DesiredContent(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Equal(t, "dev-1", repo.deviceID)
	require.Equal(t, now, repo.now)
	require.Equal(t, 1, *loads)

	require.Len(t, got, 2)
	require.Equal(t, int64(7), got[0].PlaylistID)
	require.Equal(t, "Spring", got[0].Title)
	require.Equal(t, []int64{1, 2, 3}, got[0].VideoIDs())
	require.Equal(t, "https://s3.local/videos/videos/1.mp4?sig=1", got[0].Videos[0].ContentRef)
	require.Equal(t, "https://s3.local/archive/2.mp4?sig=1", got[0].Videos[1].ContentRef)
	require.Equal(t, "https://cdn.example/3.mp4", got[0].Videos[2].ContentRef)

	require.Equal(t, int64(8), got[1].PlaylistID)
	require.NotNil(t, got[1].Videos)
	require.Empty(t, got[1].Videos)
}

func TestDesiredContent_PresignFailureFallsBackToCatalog(t *testing.T) {
	repo := &fakeContentRepo{rows: []*models.ContentRow{
		{PlaylistID: 1, VideoID: 1, StoragePath: "videos/1.mp4"},
		{PlaylistID: 1, VideoID: 2, StoragePath: "videos/2.mp4"},
	}}
	loads := stubPresign(t, errors.New("no credentials"), nil)
	s := newService(t, repo)

	got, err := s.DesiredContent(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, got[0].Videos[0].ContentRef)
	require.Empty(t, got[0].Videos[1].ContentRef)
	require.Equal(t, 1, *loads)
}

func TestDesiredContent_PresignObjectError(t *testing.T) {
	repo := &fakeContentRepo{rows: []*models.ContentRow{{PlaylistID: 1, VideoID: 1, StoragePath: "k"}}}
	stubPresign(t, nil, errors.New("signer broke"))
	s := newService(t, repo)

	got, err := s.DesiredContent(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, got[0].Videos[0].ContentRef)
}

func TestDesiredContent_Empty(t *testing.T) {
	s := newService(t, &fakeContentRepo{})
	got, err := s.DesiredContent(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestDesiredContent_RepoError(t *testing.T) {
	s := newService(t, &fakeContentRepo{err: errors.New("db down")})
	_, err := s.DesiredContent(context.Background(), "dev-1")
	require.ErrorContains(t, err, "db down")
}

func TestSplitS3Path(t *testing.T) {
	tests := []struct {
		in, def, bucket, key string
	}{
		{"s3://b/k/1.mp4", "d", "b", "k/1.mp4"},
		{"videos/1.mp4", "d", "d", "videos/1.mp4"},
		{"/videos/1.mp4", "d", "d", "videos/1.mp4"},
		{"videos/1.mp4", "", "", "videos/1.mp4"},
		{"", "d", "d", ""},
	}
	for _, tt := range tests {
		b, k := splitS3Path(tt.in, tt.def)
		require.Equal(t, tt.bucket, b, tt.in)
		require.Equal(t, tt.key, k, tt.in)
	}
}
