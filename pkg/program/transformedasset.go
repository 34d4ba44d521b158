package program

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/source"
)

// TransformedAssetProgram is the Transformed asset build program family
// (spec.md §4.E): it declares a single artifact, runs an external
// process to produce it, records every file the process's side-channel
// source map names as a dependency, and registers the source map itself
// as a sub-artifact.
type TransformedAssetProgram struct {
	obj       ProcessableSource
	processor Processor
}

func (p *TransformedAssetProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return buildstate.SourceInfo{}, false, nil
	}
	return buildstate.SourceInfo{
		SourcePath: p.obj.SourcePath(),
		Filename:   filenames[0],
		Type:       "asset-file",
	}, true, nil
}

func (p *TransformedAssetProgram) ProduceArtifacts() []ArtifactSpec {
	url := p.obj.URLPath()
	if url == "" {
		return nil
	}
	name := strings.TrimPrefix(url, "/")
	ext := filepath.Ext(name)
	if ext != "" {
		name = strings.TrimSuffix(name, ext) + p.processor.OutputExtension()
	} else {
		name += p.processor.OutputExtension()
	}
	return []ArtifactSpec{{Name: name, Sources: p.obj.SourceFilenames()}}
}

func (p *TransformedAssetProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return errors.New(errors.ErrCodeProcessor, "transformed asset has no source file").
			WithDetail("artifact", spec.Name)
	}

	tmp, err := os.CreateTemp("", "lektor-transform-*"+p.processor.OutputExtension())
	if err != nil {
		return errors.Wrap(errors.ErrCodeProcessor, "stage transform output", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	deps, sourceMap, err := p.processor.Transform(context.Background(), filenames[0], tmp.Name())
	if err != nil {
		return errors.Wrap(errors.ErrCodeProcessor, "run transform", err).
			WithDetail("source", filenames[0])
	}
	for _, d := range deps {
		bctx.RecordDependency(d)
	}

	if err := art.ReplaceWithFile(tmp.Name()); err != nil {
		return errors.Wrap(errors.ErrCodeCommit, "replace artifact with transform output", err)
	}

	if len(sourceMap) > 0 {
		mapName := spec.Name + ".map"
		bctx.AddSubArtifact(buildctx.SubArtifactRequest{
			ArtifactName: mapName,
			Sources:      filenames,
			SourceObj:    p.obj,
			Build: func(a interface{}) error {
				mapArt := a.(*artifact.Artifact)
				f, err := mapArt.Open(true, true)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = f.Write(sourceMap)
				return err
			},
		})
	}
	return nil
}

func (p *TransformedAssetProgram) IterChildSources() []source.Object { return nil }
