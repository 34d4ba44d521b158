package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func findCommand(name string) bool {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func TestRootCommandRegistersAllSubcommands(t *testing.T) {
	for _, name := range []string{"build", "prune", "update-source-infos", "ci", "version"} {
		if !findCommand(name) {
			t.Fatalf("expected %q to be registered as a top-level command", name)
		}
	}
}

func TestBuildCommandHasPruneFlag(t *testing.T) {
	cmd := newBuildCmd()
	if cmd.Flags().Lookup("prune") == nil {
		t.Fatal("expected the build command to expose a --prune flag")
	}
}

func TestPruneCommandHasAllFlag(t *testing.T) {
	cmd := newPruneCmd()
	if cmd.Flags().Lookup("all") == nil {
		t.Fatal("expected the prune command to expose an --all flag")
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != version+"\n" {
		t.Fatalf("unexpected version output: %q", buf.String())
	}
}

func TestCIGenerateWritesGitHubActionsWorkflow(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build.yml")

	cmd := newCICmd()
	cmd.SetArgs([]string{"generate", "--provider", "github-actions", "--output", out})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ci generate: %v", err)
	}

	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected the workflow file to be written: %v", err)
	}
	if len(body) == 0 {
		t.Fatal("expected a non-empty generated workflow")
	}
}

func TestCIGenerateRejectsUnknownProvider(t *testing.T) {
	cmd := newCICmd()
	cmd.SetArgs([]string{"generate", "--provider", "bogus-ci", "--output", filepath.Join(t.TempDir(), "out.yml")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an unknown CI provider to error")
	}
}

func TestCIRestoreCacheRequiresRemoteCacheConfig(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	cmd := newCICmd()
	cmd.SetArgs([]string{"restore-cache"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected restore-cache to fail without a configured remote cache")
	}
}
