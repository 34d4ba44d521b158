package content

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBuildsRecordTreeWithAttachmentsAndChildren(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contents.lr"), "title: Home\n---\nWelcome\n")
	writeFile(t, filepath.Join(root, "about", "contents.lr"), "title: About\ntemplate: about.html\n---\nHi\n")
	writeFile(t, filepath.Join(root, "about", "photo.jpg"), "jpegbytes")

	pad, err := Load(root, t.TempDir(), nil, 20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rootRec := pad.root
	if rootRec.Field("title") != "Home" {
		t.Fatalf("unexpected root title: %q", rootRec.Field("title"))
	}
	if len(rootRec.children) != 1 {
		t.Fatalf("expected one child record, got %d", len(rootRec.children))
	}

	about := rootRec.children[0]
	if about.urlPath != "/about/" {
		t.Fatalf("unexpected child URL path: %q", about.urlPath)
	}
	if about.templateName != "about.html" {
		t.Fatalf("expected the explicit template field to override the default, got %q", about.templateName)
	}
	if len(about.attachments) != 1 || about.attachments[0].urlPath != "/about/photo.jpg" {
		t.Fatalf("expected one attachment under about/, got %+v", about.attachments)
	}
}

func TestLoadMarksHiddenRecordsInvisible(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contents.lr"), "title: Home\n")
	writeFile(t, filepath.Join(root, "drafts", "contents.lr"), "title: Draft\nhidden: true\n")

	pad, err := Load(root, t.TempDir(), nil, 20)
	if err != nil {
		t.Fatal(err)
	}
	if pad.root.children[0].Visible() {
		t.Fatal("expected hidden: true to mark the record invisible")
	}
}

func TestLoadIgnoresDotfiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contents.lr"), "title: Home\n")
	writeFile(t, filepath.Join(root, ".DS_Store"), "junk")

	pad, err := Load(root, t.TempDir(), nil, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(pad.root.attachments) != 0 {
		t.Fatalf("expected dotfiles to be ignored, got attachments %+v", pad.root.attachments)
	}
}

func TestLoadAssetTreeRoutesExtensionToProcessor(t *testing.T) {
	assetRoot := t.TempDir()
	writeFile(t, filepath.Join(assetRoot, "css", "site.less"), "body{}")
	writeFile(t, filepath.Join(assetRoot, "img", "logo.png"), "pngbytes")

	pad, err := Load(t.TempDir(), assetRoot, ProcessorFor{".less": "less"}, 20)
	if err != nil {
		t.Fatal(err)
	}

	var cssDir, imgDir *AssetDirectory
	for _, c := range pad.assetRoot.children {
		if d, ok := c.(*AssetDirectory); ok {
			switch d.sourcePath {
			case "css":
				cssDir = d
			case "img":
				imgDir = d
			}
		}
	}
	if cssDir == nil || imgDir == nil {
		t.Fatalf("expected both css/ and img/ directories, got %+v", pad.assetRoot.children)
	}

	lessFile := cssDir.children[0].(*AssetFile)
	if lessFile.Processor() != "less" {
		t.Fatalf("expected site.less to be routed to the less processor, got %q", lessFile.Processor())
	}

	pngFile := imgDir.children[0].(*AssetFile)
	if pngFile.Processor() != "" {
		t.Fatalf("expected logo.png to have no processor, got %q", pngFile.Processor())
	}
}

func TestLoadMissingAssetRootYieldsEmptyDirectory(t *testing.T) {
	pad, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "does-not-exist"), nil, 20)
	if err != nil {
		t.Fatalf("expected a missing asset root to be treated as empty, got %v", err)
	}
	if len(pad.assetRoot.children) != 0 {
		t.Fatalf("expected no children for a missing asset root, got %+v", pad.assetRoot.children)
	}
}

func TestLoadPaginatesChildrenAcrossNumberedPages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contents.lr"), "title: Home\n")
	writeFile(t, filepath.Join(root, "projects", "contents.lr"), "title: Projects\npagination_enabled: true\npagination_per_page: 4\n")
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		writeFile(t, filepath.Join(root, "projects", name, "contents.lr"), "title: "+name+"\n")
	}

	pad, err := Load(root, t.TempDir(), nil, 20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	projects := pad.root.children[0]
	if !projects.paginationEnabled || projects.paginationPerPage != 4 {
		t.Fatalf("expected pagination enabled with per_page 4, got enabled=%v per_page=%d", projects.paginationEnabled, projects.paginationPerPage)
	}
	if len(projects.children) != 7 {
		t.Fatalf("expected all 7 children to still be loaded for traversal, got %d", len(projects.children))
	}

	pages := projects.PaginationSources()
	if len(pages) != 1 {
		t.Fatalf("expected exactly one extra page (7 items / 4 per page = 2 pages total), got %d", len(pages))
	}

	values := projects.RenderValues()
	kids := values["children"].([]map[string]interface{})
	if len(kids) != 4 {
		t.Fatalf("expected page 1 to list 4 children, got %d", len(kids))
	}
}

func TestLoadPaginationDisabledByDefault(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "contents.lr"), "title: Home\n")
	writeFile(t, filepath.Join(root, "a", "contents.lr"), "title: A\n")

	pad, err := Load(root, t.TempDir(), nil, 20)
	if err != nil {
		t.Fatal(err)
	}
	if pad.root.PaginationSources() != nil {
		t.Fatal("expected no pagination sources when pagination_enabled is unset")
	}
}

func TestParseContentsFileSplitsFieldsFromBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contents.lr")
	writeFile(t, path, "title: Hello\nauthor: Jane\n---\nLine one\nLine two\n")

	fields, body, err := parseContentsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fields["title"] != "Hello" || fields["author"] != "Jane" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if body != "Line one\nLine two\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}
