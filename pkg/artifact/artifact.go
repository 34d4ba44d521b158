// Package artifact implements the build engine's unit of output (component
// C, spec.md §4.C): a transactional destination file plus the per-artifact
// update session that stages writes, memorizes dependencies, clears dirty
// flags, and commits or rolls back atomically.
package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/fileinfo"
)

// Resolver translates between the engine's two path spaces and supplies
// cached fingerprints, mirroring the path-translation and FileInfo-caching
// responsibilities BuildState carries in the original design (spec.md
// §4.B). It is implemented by the builder package and injected here so
// this package stays a leaf: it never imports builder.
type Resolver interface {
	// ToSourcePath normalizes filename (which may be absolute, or given
	// relative to the project root) to the stable source-path form.
	ToSourcePath(filename string) string

	// SourceFileInfo returns the (cached) fingerprint for a source path.
	SourceFileInfo(sourcePath string) *fileinfo.Info

	// DestinationFilename returns the absolute output path for an
	// artifact name.
	DestinationFilename(artifactName string) string
}

// Artifact is a single output file the engine commits to disk, keyed by
// its artifact name, per spec.md §3.
type Artifact struct {
	Store    buildstate.Store
	Resolver Resolver

	ArtifactName string
	DstFilename  string
	Sources      []string
	SourceObj    interface{}
	Pad          interface{}

	inUpdateBlock bool
	updated       bool

	stagedFile string
	tx         buildstate.Tx
}

// New constructs an Artifact. sources are the artifact's declared primary
// sources, in whatever path form the caller has them; they are normalized
// via resolver.ToSourcePath lazily, on demand.
func New(store buildstate.Store, resolver Resolver, artifactName string, sources []string, sourceObj, pad interface{}) *Artifact {
	return &Artifact{
		Store:        store,
		Resolver:     resolver,
		ArtifactName: artifactName,
		DstFilename:  resolver.DestinationFilename(artifactName),
		Sources:      sources,
		SourceObj:    sourceObj,
		Pad:          pad,
	}
}

// Updated reports whether this artifact's update block has run to
// completion (successfully or not) at least once.
func (a *Artifact) Updated() bool { return a.updated }

func (a *Artifact) normalizedSources() []string {
	out := make([]string, len(a.Sources))
	for i, s := range a.Sources {
		out[i] = a.Resolver.ToSourcePath(s)
	}
	return out
}

// dependencyInfo pairs a source path with its memorized fingerprint (nil
// if the source was declared but never actually memorized yet).
type dependencyInfo struct {
	source string
	stored *fileinfo.Info
}

func (a *Artifact) iterDependencyInfos(ctx context.Context) ([]dependencyInfo, error) {
	rows, err := a.Store.IterArtifactDependencies(ctx, a.ArtifactName)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(rows))
	result := make([]dependencyInfo, 0, len(rows)+len(a.Sources))
	for _, r := range rows {
		found[r.Source] = true
		result = append(result, dependencyInfo{
			source: r.Source,
			stored: fileinfo.FromStored(r.Source, r.Mtime, r.Size, r.Checksum),
		})
	}

	// We also always consider our direct declared sources, even if the
	// store doesn't know about them yet — an initial build, or a change
	// to the declared source list itself.
	for _, s := range a.normalizedSources() {
		if !found[s] {
			result = append(result, dependencyInfo{source: s, stored: nil})
		}
	}
	return result, nil
}

// IsCurrent reports whether the artifact is up to date: the destination
// exists, none of its declared sources are flagged dirty, and every
// memorized dependency's live fingerprint still matches what was recorded
// (spec.md §4.C).
func (a *Artifact) IsCurrent(ctx context.Context) (bool, error) {
	if _, err := os.Stat(a.DstFilename); err != nil {
		return false, nil
	}

	dirty, err := a.Store.AnySourcesAreDirty(ctx, a.normalizedSources())
	if err != nil {
		return false, err
	}
	if dirty {
		return false, nil
	}

	deps, err := a.iterDependencyInfos(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range deps {
		if d.stored == nil {
			return false, nil
		}
		live := a.Resolver.SourceFileInfo(d.source)
		if !live.Equal(d.stored) {
			return false, nil
		}
	}
	return true, nil
}

// EnsureDir creates the artifact's parent directory, tolerating
// already-exists.
func (a *Artifact) EnsureDir() error {
	return os.MkdirAll(filepath.Dir(a.DstFilename), 0o755)
}

// Open opens the artifact for reading or writing. Writes are staged into
// a hidden-prefix temp file in the destination directory (so the final
// rename is guaranteed same-filesystem and therefore atomic); multiple
// write-opens within one update block append to the same staged file.
// Reads see the staged file if one exists, otherwise the committed file.
func (a *Artifact) Open(write bool, ensureDir bool) (*os.File, error) {
	if ensureDir {
		if err := a.EnsureDir(); err != nil {
			return nil, err
		}
	}
	if !write {
		fn := a.DstFilename
		if a.stagedFile != "" {
			fn = a.stagedFile
		}
		return os.Open(fn)
	}

	if a.stagedFile == "" {
		if err := os.MkdirAll(filepath.Dir(a.DstFilename), 0o755); err != nil {
			return nil, err
		}
		f, err := os.CreateTemp(filepath.Dir(a.DstFilename), ".__trans*")
		if err != nil {
			return nil, err
		}
		a.stagedFile = f.Name()
		return f, nil
	}
	return os.OpenFile(a.stagedFile, os.O_WRONLY|os.O_APPEND, 0o644)
}

// ReplaceWithFile atomically swaps the staged file for an externally
// prepared one. The source file is copied into a temp file in the
// destination directory (rather than adopted in place) so the eventual
// commit rename stays on a single filesystem.
func (a *Artifact) ReplaceWithFile(path string) error {
	if err := a.EnsureDir(); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(a.DstFilename), ".__trans*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if a.stagedFile != "" {
		os.Remove(a.stagedFile)
	}
	a.stagedFile = tmp.Name()
	return nil
}

// BeginUpdate begins an update block, opening the store transaction that
// will bracket it, and returns the Context that collaborating subsystems
// observe for its duration.
func (a *Artifact) BeginUpdate(ctx context.Context) (*buildctx.Context, error) {
	if a.inUpdateBlock {
		return nil, errors.New(errors.ErrCodeBuildProgram, "artifact is already open for updates").
			WithDetail("artifact", a.ArtifactName)
	}
	tx, err := a.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	a.tx = tx
	a.updated = false
	a.inUpdateBlock = true
	return buildctx.New(a, a.SourceObj, a.Pad), nil
}

// memorizeRows computes the dependency rows to persist: the union of the
// artifact's declared sources and whatever the context recorded, each
// tagged is_primary according to whether it was in the declared set
// (spec.md §4.C "dependency memorization"). Declared sources that don't
// currently exist are still memorized (size=-1) so a later creation is
// detected as a change.
func (a *Artifact) memorizeRows(referenced []string) []buildstate.DependencyRow {
	primary := make(map[string]bool)
	for _, s := range a.normalizedSources() {
		primary[s] = true
	}

	seen := make(map[string]bool)
	var rows []buildstate.DependencyRow

	all := append([]string{}, a.Sources...)
	all = append(all, referenced...)

	for _, s := range all {
		sp := a.Resolver.ToSourcePath(s)
		if seen[sp] {
			continue
		}
		seen[sp] = true
		info := a.Resolver.SourceFileInfo(sp)
		rows = append(rows, buildstate.DependencyRow{
			Source:    sp,
			Mtime:     info.Mtime(),
			Size:      info.Size(),
			Checksum:  info.Checksum(),
			IsPrimary: primary[sp],
		})
	}
	return rows
}

// finishUpdate memorizes dependencies and clears the dirty flag for the
// artifact's sources, within the still-open transaction. It always runs
// before the caller decides to commit or roll back (mirroring the
// original's try/finally structure): on rollback these writes are
// discarded along with everything else in the transaction.
func (a *Artifact) finishUpdate(ctx *buildctx.Context) error {
	if !a.inUpdateBlock {
		return errors.New(errors.ErrCodeBuildProgram, "artifact is not open for updates").
			WithDetail("artifact", a.ArtifactName)
	}
	rows := a.memorizeRows(ctx.ReferencedDependencies())
	if err := a.tx.ReplaceArtifactRows(a.ArtifactName, rows); err != nil {
		return err
	}
	if err := a.tx.ClearDirty(a.normalizedSources()); err != nil {
		return err
	}
	a.inUpdateBlock = false
	a.updated = true
	return nil
}

// Commit finalizes a successful update: the staged file is renamed over
// the destination and the store transaction is committed.
func (a *Artifact) Commit() error {
	if a.stagedFile != "" {
		if err := os.Rename(a.stagedFile, a.DstFilename); err != nil {
			a.tx.Rollback()
			a.tx = nil
			a.stagedFile = ""
			return errors.Wrap(errors.ErrCodeCommit, "rename staged artifact", err).
				WithDetail("artifact", a.ArtifactName)
		}
		a.stagedFile = ""
	}
	if a.tx != nil {
		err := a.tx.Commit()
		a.tx = nil
		return err
	}
	return nil
}

// Rollback discards a failed update: the staged file is removed, the store
// transaction is rolled back.
func (a *Artifact) Rollback() error {
	if a.stagedFile != "" {
		os.Remove(a.stagedFile)
		a.stagedFile = ""
	}
	a.inUpdateBlock = false
	if a.tx != nil {
		err := a.tx.Rollback()
		a.tx = nil
		return err
	}
	return nil
}

// Update opens the artifact for modification, invokes fn with the active
// Context pushed onto the ambient stack, and commits or rolls back
// depending on whether fn (and the bookkeeping that always follows it)
// succeeded — the scoped equivalent of spec.md §4.C's `update()`.
func (a *Artifact) Update(ctx context.Context, fn func(*buildctx.Context) error) error {
	bctx, err := a.BeginUpdate(ctx)
	if err != nil {
		return err
	}
	buildctx.Push(bctx)
	fnErr := fn(bctx)
	buildctx.Pop(bctx)

	finErr := a.finishUpdate(bctx)

	if fnErr != nil {
		a.Rollback()
		return fnErr
	}
	if finErr != nil {
		a.Rollback()
		return finErr
	}
	return a.Commit()
}

func (a *Artifact) String() string {
	return fmt.Sprintf("<Artifact %s>", a.DstFilename)
}
