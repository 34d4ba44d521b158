// Package builder implements the top-level build orchestration (component
// F, spec.md §4.F): traverse the source tree, build each source's
// program, drain sub-artifacts FIFO, and prune orphaned output.
package builder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/fileinfo"
	"github.com/lektor-go/lektor/pkg/program"
	"github.com/lektor-go/lektor/pkg/reporter"
	"github.com/lektor-go/lektor/pkg/source"
	"github.com/lektor-go/lektor/pkg/sourceinfo"
)

// Builder drives an end-to-end build against a content tree, per
// spec.md §4.F.
type Builder struct {
	Store    buildstate.Store
	Registry *program.Registry
	Pad      source.Pad

	SourceRoot string
	OutputRoot string

	resolver *pathResolver
}

// New constructs a Builder rooted at sourceRoot (the project's content
// root) producing output under outputRoot.
func New(store buildstate.Store, registry *program.Registry, pad source.Pad, sourceRoot, outputRoot string) *Builder {
	return &Builder{
		Store:      store,
		Registry:   registry,
		Pad:        pad,
		SourceRoot: sourceRoot,
		OutputRoot: outputRoot,
		resolver:   newPathResolver(sourceRoot, outputRoot),
	}
}

// Build builds a single source and its declared artifacts, without
// recursing into its children (spec.md §4.F `build(source)`).
func (b *Builder) Build(ctx context.Context, obj source.Object) error {
	b.resolver = newPathResolver(b.SourceRoot, b.OutputRoot)
	_, err := b.buildOne(ctx, obj)
	return err
}

func (b *Builder) buildOne(ctx context.Context, obj source.Object) (program.BuildProgram, error) {
	rep := reporter.Current()
	start := time.Now()
	rep.SourceEntered(obj.SourcePath())
	defer func() { rep.SourceLeft(obj.SourcePath(), time.Since(start)) }()

	prog, err := b.Registry.Lookup(obj)
	if err != nil {
		return nil, err
	}

	info, ok, err := prog.DescribeSourceRecord(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := b.Store.SaveSourceInfo(ctx, info); err != nil {
			return nil, err
		}
	}

	specs := prog.ProduceArtifacts()
	for _, spec := range specs {
		if err := b.buildArtifactSpec(ctx, obj, prog, spec, specs); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// buildArtifactSpec builds one of a program's declared artifacts if it
// isn't current, then drains whatever sub-artifacts its update produced,
// FIFO, including sub-artifacts those sub-artifacts themselves request
// (spec.md §4.F). If anything in this chain fails, every artifact this
// program declared has its sources marked dirty so the whole unit is
// retried on the next build.
func (b *Builder) buildArtifactSpec(ctx context.Context, obj source.Object, prog program.BuildProgram, spec program.ArtifactSpec, allSpecs []program.ArtifactSpec) error {
	rep := reporter.Current()
	art := artifact.New(b.Store, b.resolver, spec.Name, spec.Sources, obj, b.Pad)

	current, err := art.IsCurrent(ctx)
	if err != nil {
		return err
	}

	rep.ArtifactBuildStarted(spec.Name, current)
	start := time.Now()
	defer func() { rep.ArtifactBuildFinished(spec.Name, time.Since(start)) }()

	if current {
		return nil
	}

	var captured *buildctx.Context
	buildErr := art.Update(ctx, func(bctx *buildctx.Context) error {
		captured = bctx
		return prog.BuildArtifact(bctx, art, spec)
	})
	if buildErr != nil {
		b.markProgramDirty(ctx, allSpecs)
		rep.DirtyFlag(true)
		return errors.BuildProgramError(spec.Name, obj, buildErr)
	}
	rep.DependenciesRecorded(captured.ReferencedDependencies())

	queue := append([]buildctx.SubArtifactRequest{}, captured.SubArtifacts()...)
	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]

		subCtx, err := b.buildSubArtifact(ctx, req)
		if err != nil {
			b.markProgramDirty(ctx, allSpecs)
			rep.DirtyFlag(true)
			return err
		}
		if subCtx != nil {
			queue = append(queue, subCtx.SubArtifacts()...)
		}
	}
	return nil
}

func (b *Builder) buildSubArtifact(ctx context.Context, req buildctx.SubArtifactRequest) (*buildctx.Context, error) {
	rep := reporter.Current()
	art := artifact.New(b.Store, b.resolver, req.ArtifactName, req.Sources, req.SourceObj, b.Pad)

	current, err := art.IsCurrent(ctx)
	if err != nil {
		return nil, err
	}
	rep.SubArtifact(req.ArtifactName)
	if current {
		return nil, nil
	}

	var captured *buildctx.Context
	err = art.Update(ctx, func(bctx *buildctx.Context) error {
		captured = bctx
		return req.Build(art)
	})
	if err != nil {
		return nil, errors.BuildProgramError(req.ArtifactName, req.SourceObj, err)
	}
	return captured, nil
}

func (b *Builder) markProgramDirty(ctx context.Context, specs []program.ArtifactSpec) {
	for _, s := range specs {
		normalized := make([]string, len(s.Sources))
		for i, src := range s.Sources {
			normalized[i] = b.resolver.ToSourcePath(src)
		}
		b.Store.MarkSourcesDirty(ctx, normalized)
	}
}

// BuildAll walks the content and asset roots, building every source it
// discovers, per spec.md §4.F `build_all()`.
func (b *Builder) BuildAll(ctx context.Context, prune bool) error {
	b.resolver = newPathResolver(b.SourceRoot, b.OutputRoot)
	rep := reporter.Current()
	start := time.Now()
	rep.BuildStarted()
	defer func() { rep.BuildFinished(time.Since(start)) }()

	queue := []source.Object{b.Pad.Root(), b.Pad.AssetRoot()}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]

		prog, err := b.buildOne(ctx, obj)
		if err != nil {
			return err
		}
		queue = append(queue, prog.IterChildSources()...)
	}

	if prune {
		return b.Prune(ctx, false)
	}
	return nil
}

// UpdateAllSourceInfos walks the content and asset roots updating only
// the source-info index, without building artifacts (spec.md §4.F).
func (b *Builder) UpdateAllSourceInfos(ctx context.Context) error {
	queue := []source.Object{b.Pad.Root(), b.Pad.AssetRoot()}
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]

		prog, err := b.Registry.Lookup(obj)
		if err != nil {
			return err
		}
		info, ok, err := prog.DescribeSourceRecord(ctx)
		if err != nil {
			return err
		}
		if ok {
			if err := b.Store.SaveSourceInfo(ctx, info); err != nil {
				return err
			}
		}
		queue = append(queue, prog.IterChildSources()...)
	}
	return nil
}

// Prune removes orphaned output. If all is true, every non-ignored file
// under the output root is removed regardless of whether the store still
// references it; otherwise only files the store no longer reaches from
// an existing primary source are removed (spec.md §4.F `prune(all=false)`).
func (b *Builder) Prune(ctx context.Context, all bool) error {
	b.resolver = newPathResolver(b.SourceRoot, b.OutputRoot)
	if all {
		if err := b.pruneAll(ctx); err != nil {
			return err
		}
	} else if err := b.pruneOrphans(ctx); err != nil {
		return err
	}

	_, err := sourceinfo.New(b.Store).PruneOrphaned(ctx)
	return err
}

func (b *Builder) pruneAll(ctx context.Context) error {
	rep := reporter.Current()
	var files []string
	err := filepath.WalkDir(b.OutputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || fileinfo.ArtifactIgnore(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodePrune, "walk output tree", err)
	}

	for _, full := range files {
		name := b.artifactNameFor(full)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodePrune, "remove artifact", err).WithDetail("artifact", name)
		}
		if err := b.Store.RemoveArtifact(ctx, name); err != nil {
			return err
		}
		rep.PrunedArtifact(name)
		removeEmptyParents(filepath.Dir(full), b.OutputRoot)
	}
	return nil
}

func (b *Builder) pruneOrphans(ctx context.Context) error {
	rep := reporter.Current()
	var orphans []string
	err := filepath.WalkDir(b.OutputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != b.OutputRoot && fileinfo.ArtifactIgnore(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if fileinfo.ArtifactIgnore(d.Name()) {
			return nil
		}

		name := b.artifactNameFor(path)
		primary, err := b.Store.PrimarySources(ctx, name)
		if err != nil {
			return err
		}
		for _, src := range primary {
			if b.resolver.SourceFileInfo(src).Exists() {
				return nil
			}
		}
		orphans = append(orphans, name)
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodePrune, "walk output tree", err)
	}

	for _, name := range orphans {
		full := b.resolver.DestinationFilename(name)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodePrune, "remove orphaned artifact", err).WithDetail("artifact", name)
		}
		if err := b.Store.RemoveArtifact(ctx, name); err != nil {
			return err
		}
		rep.PrunedArtifact(name)
		removeEmptyParents(filepath.Dir(full), b.OutputRoot)
	}
	return nil
}

func (b *Builder) artifactNameFor(full string) string {
	rel, err := filepath.Rel(b.OutputRoot, full)
	if err != nil {
		return filepath.ToSlash(full)
	}
	return filepath.ToSlash(rel)
}

// removeEmptyParents removes dir and its ancestors, stopping at (and not
// removing) root, as long as each is empty.
func removeEmptyParents(dir, root string) {
	root = filepath.Clean(root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
