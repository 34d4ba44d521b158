// Package remotecache mirrors the build-state store file to and from
// remote object storage (component K, SPEC_FULL.md §4.K), so that many CI
// agents building the same site can share one incremental build-state
// file instead of starting cold every run. Adapted from the teacher's
// pkg/state/backend family of storage backends, repointed from JSON state
// documents to a single opaque blob: the SQLite build-state file.
package remotecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNotFound is returned by Backend.Download when key has never been
// pushed.
var ErrNotFound = errors.New("remotecache: object not found")

// Backend is a minimal object store: push the build-state file up under a
// key, pull it back down. Unlike the teacher's state backend, remote cache
// sync needs no locking — the build-state SQLite file already serializes
// its own writers via transactions, and at most one build at a time
// mirrors a given key in the workflows this is wired into.
type Backend interface {
	Type() string
	Upload(ctx context.Context, key string, r io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Factory constructs a Backend from its config map (the fields of
// config.RemoteCacheConfig flattened to strings).
type Factory func(cfg map[string]string) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a named backend factory. Backends register themselves
// from an init() function, mirroring the teacher's backend.Register.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Create builds the named backend from cfg.
func Create(name string, cfg map[string]string) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("remotecache: unknown backend %q", name)
	}
	return factory(cfg)
}
