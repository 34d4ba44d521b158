// Package sourceinfo implements the admin-facing read side of the build
// engine's secondary source-info index (component H, spec.md §4.H): O(1)
// lookup of a source's backing file, type, and localized titles without
// walking the content tree.
package sourceinfo

import (
	"context"
	"os"

	"github.com/lektor-go/lektor/pkg/buildstate"
)

// Index wraps the build state store's source_infos table with the
// read/prune operations admin tooling needs.
type Index struct {
	store buildstate.Store
}

// New returns an Index backed by store.
func New(store buildstate.Store) *Index {
	return &Index{store: store}
}

// Lookup returns the indexed row for sourcePath, if any.
func (i *Index) Lookup(ctx context.Context, sourcePath string) (buildstate.SourceInfo, bool, error) {
	return i.store.GetSourceInfo(ctx, sourcePath)
}

// All returns every source path currently indexed.
func (i *Index) All(ctx context.Context) ([]string, error) {
	return i.store.IterSourceInfoPaths(ctx)
}

// PruneOrphaned removes every indexed row whose backing file no longer
// exists, per spec.md §4.H: "the index ... is pruned together with
// artifacts." It returns the number of rows removed.
func (i *Index) PruneOrphaned(ctx context.Context) (int, error) {
	paths, err := i.store.IterSourceInfoPaths(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		info, ok, err := i.store.GetSourceInfo(ctx, p)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}
		if _, statErr := os.Stat(info.Filename); statErr != nil {
			if err := i.store.DeleteSourceInfo(ctx, p); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
