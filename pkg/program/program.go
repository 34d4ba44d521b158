// Package program implements the build program registry and the built-in
// program families (component E, spec.md §4.E): Page, Attachment, Asset
// file, Asset directory, and Transformed asset.
package program

import (
	"context"

	"github.com/lektor-go/lektor/pkg/artifact"
	"github.com/lektor-go/lektor/pkg/buildctx"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/source"
)

// ArtifactSpec is one artifact a program wants declared, as returned by
// ProduceArtifacts. The first spec in the slice is the primary artifact.
type ArtifactSpec struct {
	Name    string
	Sources []string
	Extra   interface{}
}

// BuildProgram is the strategy the registry dispatches to for a source
// object, per spec.md §4.E.
type BuildProgram interface {
	// DescribeSourceRecord returns the source-info row to index for this
	// source, or ok=false if no relevant file exists.
	DescribeSourceRecord(ctx context.Context) (info buildstate.SourceInfo, ok bool, err error)

	// ProduceArtifacts declares zero or more artifacts this source
	// builds. The first is the primary artifact.
	ProduceArtifacts() []ArtifactSpec

	// BuildArtifact writes spec's bytes inside the artifact's open update
	// block, recording dependencies via bctx as it goes.
	BuildArtifact(bctx *buildctx.Context, art *artifact.Artifact, spec ArtifactSpec) error

	// IterChildSources yields further sources to enqueue in a build_all
	// traversal.
	IterChildSources() []source.Object
}

// RecordSource is the view of a source.Object the Page program family
// needs, consumed the same way artifact.Resolver is: the content layer
// implements it, this package only type-asserts against it.
type RecordSource interface {
	source.Object
	Visible() bool
	TemplateName() string
	RenderValues() map[string]interface{}
	Children() []source.Object
	Attachments() []source.Object
	// PaginationSources returns the virtual sources for pages 2..N when
	// this object is page 1 of a paginated listing, else nil.
	PaginationSources() []source.Object
}

// AttachmentSource is the view the Attachment program family needs.
type AttachmentSource interface {
	source.Object
	Visible() bool
}

// AssetDirectorySource is the view the Asset directory program needs.
type AssetDirectorySource interface {
	source.Object
	Children() []source.Object
}

// ProcessableSource is the view the Transformed asset program needs:
// Processor names the registered transform ("less", "image", ...), or ""
// if the asset should be byte-copied as a plain Asset file.
type ProcessableSource interface {
	source.Object
	Processor() string
}

// TemplateRenderer is the external collaborator that turns a template
// name and a value bag into bytes, per spec.md §1: "invoked through a
// render_template(name, values) -> bytes hook that must call back into the
// context to register template-file dependencies."
type TemplateRenderer interface {
	Render(bctx *buildctx.Context, templateName string, values map[string]interface{}) ([]byte, error)
}

// Processor is the external collaborator that runs a transform on a
// single source file, per spec.md §4.E's transformed-asset contract.
type Processor interface {
	// OutputExtension returns the extension (including the leading dot)
	// the transform produces, e.g. ".css" for a LESS processor.
	OutputExtension() string

	// Transform runs the transform, writing the result to outPath.
	// deps lists every file the transform consulted (to be recorded as
	// dependencies); sourceMap is the raw bytes of a side-channel source
	// map, or nil if the tool didn't produce one.
	Transform(ctx context.Context, srcPath, outPath string) (deps []string, sourceMap []byte, err error)
}
