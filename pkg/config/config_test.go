package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWhenNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ContentRoot != "content" || cfg.OutputRoot != "htdocs" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PaginationPerPage != 20 {
		t.Fatalf("expected the default pagination_per_page, got %d", cfg.PaginationPerPage)
	}
}

func TestLoadReadsExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	body := "content_root: src\noutput_root: build\n"
	os.WriteFile(path, []byte(body), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ContentRoot != "src" || cfg.OutputRoot != "build" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvironmentOverridesFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	os.WriteFile(path, []byte("content_root: src\n"), 0644)

	os.Setenv("LEKTOR_CONTENT_ROOT", "from-env")
	defer os.Unsetenv("LEKTOR_CONTENT_ROOT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContentRoot != "from-env" {
		t.Fatalf("expected the environment variable to override the file value, got %q", cfg.ContentRoot)
	}
}

func TestLoadRejectsNegativePaginationPerPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	os.WriteFile(path, []byte("pagination_per_page: -1\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected a negative pagination_per_page to fail validation")
	}
}

func TestLoadRejectsProcessorMissingCommandInExecMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	body := "asset_processors:\n  less:\n    mode: exec\n    output_ext: .css\n"
	os.WriteFile(path, []byte(body), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected exec mode without a command to fail validation")
	}
}

func TestLoadRejectsUnknownProcessorMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	body := "asset_processors:\n  less:\n    mode: bogus\n    output_ext: .css\n"
	os.WriteFile(path, []byte(body), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected an unknown processor mode to fail validation")
	}
}

func TestLoadAcceptsValidExecProcessor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	body := "asset_processors:\n  less:\n    mode: exec\n    command: lessc\n    output_ext: .css\n    extensions: [\".less\"]\n"
	os.WriteFile(path, []byte(body), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, ok := cfg.AssetProcessors["less"]
	if !ok {
		t.Fatal("expected the less processor to be present")
	}
	if p.Command != "lessc" || len(p.Extensions) != 1 || p.Extensions[0] != ".less" {
		t.Fatalf("unexpected processor config: %+v", p)
	}
}

func TestLoadRejectsRemoteCacheWithoutBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lektor.yaml")
	os.WriteFile(path, []byte("remote_cache:\n  bucket: my-bucket\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected a remote_cache block without a backend to fail validation")
	}
}
