// Package content is a minimal filesystem-backed content layer
// implementing source.Pad and source.Object: the concrete stand-in for
// the content database spec.md §1 scopes out as an external
// collaborator ("the engine only consumes a Pad interface that yields
// source objects"). Records are directories containing a contents.lr
// file; anything else in a record's directory is an attachment; assets
// mirror the static asset tree verbatim.
package content

import (
	"strconv"

	"github.com/lektor-go/lektor/pkg/source"
)

// defaultPaginationURLSuffix mirrors the original's
// PaginationConfig.url_suffix default ('/page/{{ page }}' in
// datamodel.py): the page/ segment before the trailing index.html is
// part of the default, not an add-on.
const defaultPaginationURLSuffix = "/page/{{ page }}"

// Record is a content record: a directory with a contents.lr file,
// rendered through a template (source.ClassRecord).
type Record struct {
	sourcePath   string
	contentsFile string
	urlPath      string
	visible      bool
	templateName string
	fields       map[string]string
	body         string
	children     []*Record
	attachments  []*Attachment

	// page is this record's pagination page number. Zero means "not a
	// virtual pagination page" and is treated as page 1.
	page                int
	paginationEnabled   bool
	paginationPerPage   int
	paginationURLSuffix string
	// listingItems is the full set of records a paginated listing pages
	// over. Set on the primary (page 1) record and copied verbatim onto
	// every virtual page it generates.
	listingItems []*Record
}

func (r *Record) SourcePath() string { return r.sourcePath }

func (r *Record) SourceFilenames() []string {
	if r.contentsFile == "" {
		return nil
	}
	return []string{r.contentsFile}
}

func (r *Record) URLPath() string       { return r.urlPath }
func (r *Record) Class() source.Class   { return source.ClassRecord }
func (r *Record) Visible() bool         { return r.visible }
func (r *Record) TemplateName() string  { return r.templateName }
func (r *Record) Field(key string) string { return r.fields[key] }

// PageNumber returns this record's pagination page number: 1 for a
// primary record or any record not under pagination, 2..N for a virtual
// pagination page.
func (r *Record) PageNumber() int {
	if r.page <= 0 {
		return 1
	}
	return r.page
}

// PaginationURLSuffix returns the url_suffix template for this record's
// pagination, falling back to the original's default.
func (r *Record) PaginationURLSuffix() string {
	if r.paginationURLSuffix != "" {
		return r.paginationURLSuffix
	}
	return defaultPaginationURLSuffix
}

func (r *Record) RenderValues() map[string]interface{} {
	items := r.listingItems
	page := r.PageNumber()
	totalPages := 1
	if r.paginationEnabled && r.paginationPerPage > 0 {
		totalPages = paginationTotalPages(len(items), r.paginationPerPage)
		items = paginationWindow(items, page, r.paginationPerPage)
	}

	children := make([]map[string]interface{}, len(items))
	for i, c := range items {
		children[i] = map[string]interface{}{
			"title":    c.fields["title"],
			"url_path": c.urlPath,
		}
	}

	values := map[string]interface{}{
		"fields":   r.fields,
		"body":     r.body,
		"children": children,
	}
	if r.paginationEnabled {
		values["pagination"] = map[string]interface{}{
			"page":        page,
			"total_pages": totalPages,
			"per_page":    r.paginationPerPage,
		}
	}
	return values
}

func (r *Record) Children() []source.Object {
	out := make([]source.Object, len(r.children))
	for i, c := range r.children {
		out[i] = c
	}
	return out
}

func (r *Record) Attachments() []source.Object {
	out := make([]source.Object, len(r.attachments))
	for i, a := range r.attachments {
		out[i] = a
	}
	return out
}

// PaginationSources returns the virtual sources for pages 2..N when r is
// page 1 of an enabled paginated listing with more items than fit on one
// page, else nil (spec.md §4.E / S6).
func (r *Record) PaginationSources() []source.Object {
	if !r.paginationEnabled || r.PageNumber() != 1 || r.paginationPerPage <= 0 {
		return nil
	}
	total := paginationTotalPages(len(r.listingItems), r.paginationPerPage)
	if total <= 1 {
		return nil
	}
	out := make([]source.Object, 0, total-1)
	for n := 2; n <= total; n++ {
		out = append(out, r.virtualPage(n))
	}
	return out
}

// virtualPage builds the record for pagination page n>1: it shares r's
// url_path, template, and fields but produces no index.html of its own
// traversal-wise (no children/attachments) since the primary page
// already owns walking those sources.
func (r *Record) virtualPage(n int) *Record {
	return &Record{
		sourcePath:          joinSourcePath(r.sourcePath, "page/"+strconv.Itoa(n)),
		contentsFile:        r.contentsFile,
		urlPath:             r.urlPath,
		visible:             r.visible,
		templateName:        r.templateName,
		fields:              r.fields,
		body:                r.body,
		page:                n,
		paginationEnabled:   true,
		paginationPerPage:   r.paginationPerPage,
		paginationURLSuffix: r.paginationURLSuffix,
		listingItems:        r.listingItems,
	}
}

// paginationTotalPages returns the number of pages count items split
// perPage at a time, always at least 1.
func paginationTotalPages(count, perPage int) int {
	if perPage <= 0 || count == 0 {
		return 1
	}
	return (count + perPage - 1) / perPage
}

// paginationWindow slices items down to the n-th perPage-sized page.
func paginationWindow(items []*Record, page, perPage int) []*Record {
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Attachment is a record's attached file, copied byte-for-byte
// (source.ClassAttachment).
type Attachment struct {
	sourcePath string
	filename   string
	urlPath    string
	visible    bool
}

func (a *Attachment) SourcePath() string         { return a.sourcePath }
func (a *Attachment) SourceFilenames() []string  { return []string{a.filename} }
func (a *Attachment) URLPath() string            { return a.urlPath }
func (a *Attachment) Class() source.Class        { return source.ClassAttachment }
func (a *Attachment) Visible() bool              { return a.visible }

// AssetFile is a single file under the static asset tree
// (source.ClassAssetFile).
type AssetFile struct {
	sourcePath string
	filename   string
	urlPath    string
	processor  string
}

func (f *AssetFile) SourcePath() string        { return f.sourcePath }
func (f *AssetFile) SourceFilenames() []string { return []string{f.filename} }
func (f *AssetFile) URLPath() string           { return f.urlPath }
func (f *AssetFile) Class() source.Class       { return source.ClassAssetFile }
func (f *AssetFile) Processor() string         { return f.processor }

// AssetDirectory is a directory under the static asset tree
// (source.ClassAssetDirectory): it declares nothing and enumerates its
// entries as child sources.
type AssetDirectory struct {
	sourcePath string
	urlPath    string
	children   []source.Object
}

func (d *AssetDirectory) SourcePath() string        { return d.sourcePath }
func (d *AssetDirectory) SourceFilenames() []string  { return nil }
func (d *AssetDirectory) URLPath() string            { return d.urlPath }
func (d *AssetDirectory) Class() source.Class        { return source.ClassAssetDirectory }
func (d *AssetDirectory) Children() []source.Object  { return d.children }

// Pad is the source.Pad implementation backing the content and asset
// trees loaded by Load.
type Pad struct {
	root      *Record
	assetRoot *AssetDirectory
}

func (p *Pad) Root() source.Object      { return p.root }
func (p *Pad) AssetRoot() source.Object { return p.assetRoot }

var _ source.Pad = (*Pad)(nil)
