package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fleetsync/internal/contentapi"
	"github.com/dmitrijs2005/fleetsync/internal/netx"
)

// ErrBadRef is returned for content refs that name no usable object.
var ErrBadRef = errors.New("invalid content ref")

// Source opens the bytes of a video. size is -1 when the source does not
// announce a length.
type Source interface {
	Open(ctx context.Context, v contentapi.Video) (body io.ReadCloser, size int64, err error)
}

// S3Config holds what the agent needs to read s3:// refs directly.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Region       string
	BaseEndpoint string
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectGetter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Fetcher picks a transport by content ref: the catalog video endpoint for
// an empty or relative ref, the URL itself for http(s) refs and S3
// GetObject for s3://bucket/key refs.
type Fetcher struct {
	// VideoURL returns the catalog endpoint for a video id.
	VideoURL func(videoID int64) string
	HTTP     *http.Client
	S3       S3Config

	mu       sync.Mutex
	s3client objectGetter
}

func NewFetcher(videoURL func(int64) string, s3cfg S3Config) *Fetcher {
	return &Fetcher{VideoURL: videoURL, HTTP: &http.Client{}, S3: s3cfg}
}

func (f *Fetcher) Open(ctx context.Context, v contentapi.Video) (io.ReadCloser, int64, error) {
	ref := v.ContentRef
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return netx.Get(ctx, f.HTTP, ref, nil)
	case strings.HasPrefix(ref, "s3://"):
		return f.openS3(ctx, ref)
	default:
		return netx.Get(ctx, f.HTTP, f.VideoURL(v.VideoID), nil)
	}
}

func (f *Fetcher) openS3(ctx context.Context, ref string) (io.ReadCloser, int64, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, 0, fmt.Errorf("%w: %q", ErrBadRef, ref)
	}

	client, err := f.getS3Client(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("s3 client: %w", err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

func (f *Fetcher) getS3Client(ctx context.Context) (objectGetter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.s3client != nil {
		return f.s3client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(f.S3.Region)}
	if f.S3.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(f.S3.AccessKey, f.S3.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	f.s3client = newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if f.S3.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(f.S3.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return f.s3client, nil
}
