package remotecache

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lektor-go/lektor/pkg/errors"
)

// buildStateKey is the fixed object key under which the SQLite build-state
// file is mirrored. One key per RemoteCacheConfig: distinct sites use
// distinct buckets/containers or prefixes, not distinct keys.
const buildStateKey = "buildstate.db"

// Pull copies the remote build-state object down to localPath, so a fresh
// CI runner starts warm instead of from an empty store. Missing remote
// objects are not an error: the first build for a project has nothing to
// pull yet.
func Pull(ctx context.Context, b Backend, localPath string) error {
	r, err := b.Download(ctx, buildStateKey)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return errors.Wrap(errors.ErrCodeRemoteCache, "pull build state", err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRemoteCache, "create local build state", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrap(errors.ErrCodeRemoteCache, "write local build state", err)
	}
	return nil
}

// Push uploads the local build-state file to the remote backend, making
// this build's incremental state available to the next CI agent.
func Push(ctx context.Context, b Backend, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRemoteCache, "open local build state", err)
	}
	defer f.Close()

	if err := b.Upload(ctx, buildStateKey, f); err != nil {
		return errors.Wrap(errors.ErrCodeRemoteCache, "push build state", err)
	}
	return nil
}

// configMap flattens a RemoteCacheConfig-shaped struct (duck-typed here to
// avoid an import cycle with pkg/config) into the string map backend
// factories expect.
func configMap(backendType, bucket, key string, extra map[string]string) map[string]string {
	cfg := map[string]string{"bucket": bucket, "container_name": bucket, "key": key, "prefix": key}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

// New builds the Backend named by backendType, merging bucket/key with any
// backend-specific extras (region, storage_account_name, credentials...).
func New(backendType, bucket, key string, extra map[string]string) (Backend, error) {
	b, err := Create(backendType, configMap(backendType, bucket, key, extra))
	if err != nil {
		return nil, fmt.Errorf("remotecache: %w", err)
	}
	return b, nil
}
