package remotecache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func init() {
	Register("local", newLocalBackend)
}

// localBackend mirrors the build-state file to another path on the same
// filesystem — useful for testing the sync flow, or for a shared NFS
// mount, without standing up real object storage.
type localBackend struct {
	basePath string
}

func newLocalBackend(cfg map[string]string) (Backend, error) {
	path := cfg["path"]
	if path == "" {
		return nil, fmt.Errorf("local remote cache backend requires 'path' configuration")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create remote cache directory: %w", err)
	}
	return &localBackend{basePath: path}, nil
}

func (b *localBackend) Type() string { return "local" }

func (b *localBackend) Upload(ctx context.Context, key string, r io.Reader) error {
	full := b.fullPath(key)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".remotecache-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write remote cache object: %w", err)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit remote cache object: %w", err)
	}
	return nil
}

func (b *localBackend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read remote cache object %s: %w", key, err)
	}
	return f, nil
}

func (b *localBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.fullPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *localBackend) fullPath(key string) string {
	return filepath.Join(b.basePath, key)
}

var _ Backend = (*localBackend)(nil)
