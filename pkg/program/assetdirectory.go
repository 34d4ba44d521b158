package program

import (
	"context"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/source"
)

// AssetDirectoryProgram is the Asset directory build program family
// (spec.md §4.E): it declares no artifact of its own and enumerates its
// directory entries as child sources.
type AssetDirectoryProgram struct {
	obj AssetDirectorySource
}

func (p *AssetDirectoryProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
	return buildstate.SourceInfo{}, false, nil
}

func (p *AssetDirectoryProgram) ProduceArtifacts() []ArtifactSpec { return nil }

func (p *AssetDirectoryProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error {
	return nil
}

func (p *AssetDirectoryProgram) IterChildSources() []source.Object {
	return p.obj.Children()
}
