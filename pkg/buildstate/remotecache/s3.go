package remotecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func init() {
	Register("s3", newS3Backend)
}

// s3Backend mirrors the build-state file to an S3-compatible bucket,
// adapted from the teacher's pkg/state/backend/s3.
type s3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

func newS3Backend(cfg map[string]string) (Backend, error) {
	bucket, ok := cfg["bucket"]
	if !ok || bucket == "" {
		return nil, fmt.Errorf("s3 remote cache backend requires 'bucket' configuration")
	}

	region := cfg["region"]
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(region))
	if accessKey := cfg["access_key"]; accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, cfg["secret_key"], ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg["force_path_style"] == "true"
		if endpoint := cfg["endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &s3Backend{client: client, bucket: bucket, prefix: cfg["key"]}, nil
}

func (b *s3Backend) Type() string { return "s3" }

func (b *s3Backend) Upload(ctx context.Context, key string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read build-state data: %w", err)
	}
	fullKey := b.fullPath(key)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.bucket,
		Key:         &fullKey,
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload build-state to s3://%s/%s: %w", b.bucket, fullKey, err)
	}
	return nil
}

func (b *s3Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullKey := b.fullPath(key)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.bucket, Key: &fullKey})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download build-state from s3://%s/%s: %w", b.bucket, fullKey, err)
	}
	return out.Body, nil
}

func (b *s3Backend) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := b.fullPath(key)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &b.bucket, Key: &fullKey})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *s3Backend) fullPath(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

var _ Backend = (*s3Backend)(nil)
