package program

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/source"
)

// AssetFileProgram is the Asset file build program family (spec.md
// §4.E): it declares "<artifact_name>" and byte-copies the source file.
type AssetFileProgram struct {
	obj source.Object
}

func (p *AssetFileProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
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

func (p *AssetFileProgram) ProduceArtifacts() []ArtifactSpec {
	url := p.obj.URLPath()
	if url == "" {
		return nil
	}
	return []ArtifactSpec{{Name: strings.TrimPrefix(url, "/"), Sources: p.obj.SourceFilenames()}}
}

func (p *AssetFileProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return errors.New(errors.ErrCodeBuildProgram, "asset file has no source file").
			WithDetail("artifact", spec.Name)
	}
	return copyFileInto(art, filenames[0])
}

func (p *AssetFileProgram) IterChildSources() []source.Object { return nil }

// copyFileInto streams src's bytes into art's staged write handle.
func copyFileInto(art *artifact.Artifact, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSourceIO, "open source file", err).WithDetail("source", src)
	}
	defer in.Close()

	out, err := art.Open(true, true)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
