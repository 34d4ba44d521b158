package program

import (
	"context"
	"strconv"
	"strings"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/source"
)

// PageProgram is the Page build program family (spec.md §4.E): it
// declares "<url_path>/index.html" if the record is visible, renders it
// through the configured template, and iterates children, attachments,
// and pagination sources.
type PageProgram struct {
	obj      RecordSource
	renderer TemplateRenderer
}

func (p *PageProgram) DescribeSourceRecord(ctx context.Context) (buildstate.SourceInfo, bool, error) {
	filenames := p.obj.SourceFilenames()
	if len(filenames) == 0 {
		return buildstate.SourceInfo{}, false, nil
	}
	return buildstate.SourceInfo{
		SourcePath: p.obj.SourcePath(),
		Filename:   filenames[0],
		Type:       "page",
	}, true, nil
}

// PagedRecordSource is implemented by a RecordSource that knows its own
// pagination page number, e.g. a virtual page 2..N generated by
// PaginationSources. PageProgram type-asserts against it to name that
// page's artifact distinctly from the primary page-1 index.
type PagedRecordSource interface {
	PageNumber() int
	PaginationURLSuffix() string
}

func (p *PageProgram) ProduceArtifacts() []ArtifactSpec {
	if !p.obj.Visible() {
		return nil
	}
	url := p.obj.URLPath()
	if url == "" {
		return nil
	}
	name := indexArtifactName(url)
	if paged, ok := p.obj.(PagedRecordSource); ok && paged.PageNumber() > 1 {
		name = PageArtifactName(url, paged.PageNumber(), paged.PaginationURLSuffix())
	}
	return []ArtifactSpec{{Name: name, Sources: p.obj.SourceFilenames()}}
}

func (p *PageProgram) BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error {
	body, err := p.renderer.Render(bctx, p.obj.TemplateName(), p.obj.RenderValues())
	if err != nil {
		return errors.Wrap(errors.ErrCodeBuildProgram, "render template", err).
			WithDetail("template", p.obj.TemplateName())
	}
	f, err := art.Open(true, true)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(body)
	return err
}

func (p *PageProgram) IterChildSources() []source.Object {
	var out []source.Object
	out = append(out, p.obj.Children()...)
	out = append(out, p.obj.Attachments()...)
	out = append(out, p.obj.PaginationSources()...)
	return out
}

// indexArtifactName turns a URL path into an artifact name, appending
// index.html per spec.md §3's "directories that end in / gain
// index.html".
func indexArtifactName(urlPath string) string {
	p := strings.Trim(urlPath, "/")
	if p == "" {
		return "index.html"
	}
	return p + "/index.html"
}

// PageArtifactName is indexArtifactName for a numbered pagination page,
// exported for content-layer implementations building the URL path of a
// virtual pagination source (spec.md §4.E, "numbered pages 2..N"). suffix
// is the url_suffix template (e.g. "/page/{{ page }}", the original's
// default) with its "{{ page }}" token substituted; an empty suffix
// falls back to that same default.
func PageArtifactName(urlPath string, page int, suffix string) string {
	if page <= 1 {
		return indexArtifactName(urlPath)
	}
	if suffix == "" {
		suffix = "/page/{{ page }}"
	}
	segment := strings.Trim(strings.ReplaceAll(suffix, "{{ page }}", strconv.Itoa(page)), "/")
	p := strings.Trim(urlPath, "/")
	if p == "" {
		return segment + "/index.html"
	}
	return p + "/" + segment + "/index.html"
}
