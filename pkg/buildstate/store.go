// Package buildstate implements the build engine's persistent dependency
// database (spec.md §3/§4.B): a transactional map from artifact name to its
// recorded source fingerprints, plus a dirty-source set used to recover
// from failed builds, plus a secondary source-info index (component H).
package buildstate

import "context"

// DependencyRow is one (artifact, source) fingerprint row as stored in the
// "artifacts" table, mirroring spec.md §3's BuildStateEntry.
type DependencyRow struct {
	Source    string
	Mtime     int64
	Size      int64
	Checksum  string
	IsPrimary bool
}

// SourceInfo is the flat projection maintained by component H so admin-style
// tooling can locate a source's backing file without re-walking the
// content tree (spec.md §3).
type SourceInfo struct {
	SourcePath string
	Alt        string
	Filename   string
	Type       string
	TitleI18n  map[string]string
}

// Store is the build-state persistence contract (spec.md §4.B). Any
// backend satisfying these operations is acceptable; the built-in
// implementation is SQLite (pkg/buildstate/sqlitestore), matching the
// spec's recommended embodiment. Methods other than Begin run outside any
// Tx. SQLiteStore holds a single database connection, so such a call made
// while a Tx is open waits until that Tx commits or rolls back.
type Store interface {
	// IterArtifactDependencies yields the stored fingerprint rows for
	// the given artifact.
	IterArtifactDependencies(ctx context.Context, artifact string) ([]DependencyRow, error)

	// PrimarySources returns the sources recorded as primary for the
	// given artifact (used by the unreferenced-artifact scan).
	PrimarySources(ctx context.Context, artifact string) ([]string, error)

	// RemoveArtifact deletes all rows for the artifact key.
	RemoveArtifact(ctx context.Context, artifact string) error

	// AnySourcesAreDirty reports whether any of the given source paths
	// appear in the dirty_sources table.
	AnySourcesAreDirty(ctx context.Context, sources []string) (bool, error)

	// MarkSourcesDirty idempotently inserts the given source paths into
	// the dirty_sources table. Used independently of any artifact's
	// update transaction (e.g. after that transaction already rolled
	// back), so it commits immediately.
	MarkSourcesDirty(ctx context.Context, sources []string) error

	// GetSourceInfo returns the stored source-info row for sourcePath,
	// if any (component H).
	GetSourceInfo(ctx context.Context, sourcePath string) (SourceInfo, bool, error)

	// SaveSourceInfo upserts a source-info row independently of any
	// artifact transaction.
	SaveSourceInfo(ctx context.Context, info SourceInfo) error

	// IterSourceInfoPaths returns every source path currently indexed,
	// used when pruning orphaned source-info rows.
	IterSourceInfoPaths(ctx context.Context) ([]string, error)

	// DeleteSourceInfo removes the source-info row for sourcePath.
	DeleteSourceInfo(ctx context.Context, sourcePath string) error

	// Begin opens the single connection/transaction that brackets one
	// artifact's update block (spec.md §4.C state machine).
	Begin(ctx context.Context) (Tx, error)

	// Close releases any resources held by the store.
	Close() error
}

// Tx is the scope of one artifact update: every write performed while an
// artifact is open for modification goes through the same Tx, which
// commits on Artifact.Commit and rolls back on Artifact.Rollback.
type Tx interface {
	// ReplaceArtifactRows atomically replaces all rows for artifact with
	// rows (delete-then-insert), per spec.md §3's "replaced wholesale."
	ReplaceArtifactRows(artifact string, rows []DependencyRow) error

	// ClearDirty deletes the given sources from dirty_sources.
	ClearDirty(sources []string) error

	Commit() error
	Rollback() error
}
