package program

import (
	"context"
	"strings"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/source"
)

// AttachmentProgram is the Attachment build program family (spec.md
// §4.E): it declares "<url_path>" if visible and copies the source file
// byte-for-byte.
type AttachmentProgram struct {
	obj AttachmentSource
}

func (p *AttachmentProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return buildstate.SourceInfo{}, false, nil
	}
	return buildstate.SourceInfo{
		SourcePath: p.obj.SourcePath(),
		Filename:   filenames[0],
		Type:       "attachment",
	}, true, nil
}

func (p *AttachmentProgram) ProduceArtifacts() []ArtifactSpec {
	if !p.obj.Visible() {
		return nil
	}
	url := p.obj.URLPath()
	if url == "" {
		return nil
	}
	return []ArtifactSpec{{Name: strings.TrimPrefix(url, "/"), Sources: p.obj.SourceFilenames()}}
}

func (p *AttachmentProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return errors.New(errors.ErrCodeBuildProgram, "attachment has no source file").
			WithDetail("artifact", spec.Name)
	}
	return copyFileInto(art, filenames[0])
}

func (p *AttachmentProgram) IterChildSources() []source.Object { return nil }
