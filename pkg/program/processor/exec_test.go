package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExecProcessorRunsCommandAndProducesOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	p := &ExecProcessor{Command: "cp", OutputExt: ".txt"}
	deps, sourceMap, err := p.Transform(context.Background(), src, out)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if deps != nil || sourceMap != nil {
		t.Fatalf("expected no deps/source map without SourceMapExt, got deps=%v map=%v", deps, sourceMap)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("unexpected output contents: %q", got)
	}
	if p.OutputExtension() != ".txt" {
		t.Fatalf("unexpected OutputExtension: %q", p.OutputExtension())
	}
}

func TestExecProcessorSubstitutesPlaceholders(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	os.WriteFile(src, []byte("x"), 0644)

	p := &ExecProcessor{Command: "cp", Args: []string{"{src}", "{out}"}, OutputExt: ".txt"}
	if _, _, err := p.Transform(context.Background(), src, out); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestExecProcessorSurfacesNonZeroExit(t *testing.T) {
	p := &ExecProcessor{Command: "false", OutputExt: ".txt"}
	if _, _, err := p.Transform(context.Background(), "/dev/null", "/dev/null"); err == nil {
		t.Fatal("expected a non-zero exit to surface as an error")
	}
}

func TestExecProcessorReadsSourceMap(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.css")
	out := filepath.Join(dir, "out.css")
	os.WriteFile(src, []byte("body{}"), 0644)

	sm, _ := json.Marshal(sourceMapV3{Sources: []string{"a.less", "b.less"}})
	os.WriteFile(out+".map", sm, 0644)

	p := &ExecProcessor{Command: "cp", OutputExt: ".css", SourceMapExt: ".map"}
	deps, raw, err := p.Transform(context.Background(), src, out)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(deps) != 2 || deps[0] != "a.less" || deps[1] != "b.less" {
		t.Fatalf("unexpected deps parsed from source map: %v", deps)
	}
	if len(raw) == 0 {
		t.Fatal("expected the raw source map bytes to be returned")
	}
}

func TestParseSourceMapMissingFileIsNotAnError(t *testing.T) {
	deps, raw, err := parseSourceMap(filepath.Join(t.TempDir(), "absent.map"))
	if err != nil {
		t.Fatalf("expected a missing source map to be a non-error, got %v", err)
	}
	if deps != nil || raw != nil {
		t.Fatalf("expected nil deps/raw for a missing source map, got %v %v", deps, raw)
	}
}
