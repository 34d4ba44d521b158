package templateengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lektor-go/lektor/pkg/buildctx"
)

func TestRenderExecutesTemplateAgainstValues(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "page.html")
	if err := os.WriteFile(path, []byte("<h1>{{.title}}</h1>"), 0644); err != nil {
		t.Fatal(err)
	}

	e := New(root)
	out, err := e.Render(nil, "page.html", map[string]interface{}{"title": "Hello"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if string(out) != "<h1>Hello</h1>" {
		t.Fatalf("unexpected rendered output: %q", out)
	}
}

func TestRenderRecordsTemplateAsDependency(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "page.html")
	os.WriteFile(path, []byte("body"), 0644)

	e := New(root)
	bctx := buildctx.New("artifact", "source", nil)
	if _, err := e.Render(bctx, "page.html", nil); err != nil {
		t.Fatal(err)
	}

	deps := bctx.ReferencedDependencies()
	found := false
	for _, d := range deps {
		if d == path {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the template file to be recorded as a dependency, got %v", deps)
	}
}

func TestRenderCachesParsedTemplates(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "page.html")
	os.WriteFile(path, []byte("v1"), 0644)

	e := New(root)
	if _, err := e.Render(nil, "page.html", nil); err != nil {
		t.Fatal(err)
	}

	// Rewriting the file after the first parse must not affect the
	// cached template — Render should still return the original body.
	os.WriteFile(path, []byte("v2"), 0644)
	out, err := e.Render(nil, "page.html", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "v1" {
		t.Fatalf("expected the cached template to win, got %q", out)
	}
}

func TestRenderMissingTemplateErrors(t *testing.T) {
	e := New(t.TempDir())
	if _, err := e.Render(nil, "missing.html", nil); err == nil {
		t.Fatal("expected an error for a missing template file")
	}
}
