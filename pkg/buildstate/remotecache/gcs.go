package remotecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func init() {
	Register("gcs", newGCSBackend)
}

// gcsBackend mirrors the build-state file to Google Cloud Storage,
// adapted from the teacher's pkg/state/backend/gcs.
type gcsBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSBackend(cfg map[string]string) (Backend, error) {
	bucketName, ok := cfg["bucket"]
	if !ok || bucketName == "" {
		return nil, fmt.Errorf("gcs remote cache backend requires 'bucket' configuration")
	}

	var opts []option.ClientOption
	if credentialsFile := cfg["credentials"]; credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	if endpoint := cfg["endpoint"]; endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &gcsBackend{client: client, bucket: bucketName, prefix: cfg["prefix"]}, nil
}

func (b *gcsBackend) Type() string { return "gcs" }

func (b *gcsBackend) Upload(ctx context.Context, key string, r io.Reader) error {
	objectPath := b.fullPath(key)
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read build-state data: %w", err)
	}

	w := b.client.Bucket(b.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload build-state to gs://%s/%s: %w", b.bucket, objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close gcs writer: %w", err)
	}
	return nil
}

func (b *gcsBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	objectPath := b.fullPath(key)
	r, err := b.client.Bucket(b.bucket).Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download build-state from gs://%s/%s: %w", b.bucket, objectPath, err)
	}
	return r, nil
}

func (b *gcsBackend) Exists(ctx context.Context, key string) (bool, error) {
	objectPath := b.fullPath(key)
	_, err := b.client.Bucket(b.bucket).Object(objectPath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *gcsBackend) fullPath(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

var _ Backend = (*gcsBackend)(nil)
