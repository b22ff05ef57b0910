// Package content builds the desired-content read model served to agents:
// the active playlists of a device with their current videos in order and
// a content ref for each video.
package content

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/logging"
	sc "github.com/dmitrijs2005/fleetsync/internal/server/config"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
	"github.com/dmitrijs2005/fleetsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fleetsync/internal/timex"
)

// PresignExpiry is the lifetime of presigned GET URLs handed to agents.
const PresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	clock       timex.Clock
	logger      logging.Logger
}

func NewService(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *Service {
	return &Service{
		db:          db,
		repomanager: rm,
		config:      config,
		clock:       timex.Real(),
		logger:      logger.With("module", "content"),
	}
}

func (s *Service) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// DesiredContent returns the active playlists for deviceID (every active
// playlist when deviceID is empty). Videos past their own expiration are
// left out; a playlist with no current video is still listed.
func (s *Service) DesiredContent(ctx context.Context, deviceID string) ([]contentapi.Playlist, error) {
	rows, err := s.repomanager.Content(s.db).SelectDesired(ctx, deviceID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	r := &refResolver{service: s}
	result := make([]contentapi.Playlist, 0)
	for _, row := range rows {
		if len(result) == 0 || result[len(result)-1].PlaylistID != row.PlaylistID {
			result = append(result, contentapi.Playlist{
				PlaylistID:     row.PlaylistID,
				Title:          row.PlaylistName,
				Videos:         []contentapi.Video{},
				ExpirationDate: row.PlaylistExpirationDate,
			})
		}
		if row.VideoID == 0 {
			continue
		}
		p := &result[len(result)-1]
		p.Videos = append(p.Videos, contentapi.Video{
			VideoID:    row.VideoID,
			Title:      row.VideoTitle,
			Size:       row.SizeBytes,
			Duration:   row.DurationSeconds,
			ContentRef: r.resolve(ctx, row),
		})
	}
	return result, nil
}

// refResolver turns storage paths into content refs, building the presign
// client at most once per request.
type refResolver struct {
	service *Service
	client  *s3.PresignClient
	failed  bool
}

// resolve keeps http(s) URLs, presigns S3 objects and falls back to the
// catalog video endpoint (empty ref) when presigning is not possible.
func (r *refResolver) resolve(ctx context.Context, row *models.ContentRow) string {
	path := row.StoragePath
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	bucket, key := splitS3Path(path, r.service.config.S3Bucket)
	if bucket == "" || key == "" || r.failed {
		return ""
	}

	if r.client == nil {
		c, err := r.service.getPresignClient(ctx)
		if err != nil {
			r.failed = true
			r.service.logger.Warn(ctx, "s3 presign client unavailable, using catalog endpoint", "error", err)
			return ""
		}
		r.client = c
	}

	req, err := presignGetObject(r.client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		r.service.logger.Warn(ctx, "failed to presign video", "video_id", row.VideoID, "error", err)
		return ""
	}
	return req.URL
}

// splitS3Path accepts "s3://bucket/key" or a bare key in defaultBucket.
func splitS3Path(path, defaultBucket string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(path, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, key
	}
	return defaultBucket, strings.TrimPrefix(path, "/")
}
