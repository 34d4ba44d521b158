package reporter

import (
	"bytes"
	"strings"
	"testing"
)

func TestCLIReporterVerbosityGatesArtifactInternals(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIReporter{Verbosity: 1, Out: &buf}

	r.SubArtifact("index.html.map")
	if buf.Len() != 0 {
		t.Fatalf("expected verbosity 1 to suppress sub-artifact lines, got %q", buf.String())
	}

	r.Verbosity = 3
	r.SubArtifact("index.html.map")
	if !strings.Contains(buf.String(), "sub artifact") {
		t.Fatalf("expected verbosity 3 to print sub-artifact lines, got %q", buf.String())
	}
}

func TestCLIReporterShowsUpdatedArtifactsAtAnyVerbosity(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIReporter{Verbosity: 0, Out: &buf}
	r.ArtifactBuildStarted("index.html", false)
	if !strings.Contains(buf.String(), "index.html") {
		t.Fatalf("expected an updated artifact to print even at verbosity 0, got %q", buf.String())
	}
}

func TestCLIReporterHidesCurrentArtifactsBelowVerbosity2(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIReporter{Verbosity: 1, Out: &buf}
	r.ArtifactBuildStarted("index.html", true)
	if buf.Len() != 0 {
		t.Fatalf("expected a current (unchanged) artifact to stay silent below verbosity 2, got %q", buf.String())
	}
}

func TestCLIReporterIndentationNesting(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIReporter{Verbosity: 4, Out: &buf}
	r.SourceEntered("content/about/contents.lr")
	r.Debug("k", "v")
	r.SourceLeft("content/about/contents.lr", 0)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if !strings.HasPrefix(lines[1], "  ") {
		t.Fatalf("expected the debug line nested under the entered source to be indented, got %q", lines[1])
	}
}

func TestCLIReporterDebugHiddenBelowVerbosity4(t *testing.T) {
	var buf bytes.Buffer
	r := &CLIReporter{Verbosity: 3, Out: &buf}
	r.Debug("k", "v")
	if buf.Len() != 0 {
		t.Fatalf("expected Debug to stay silent below verbosity 4, got %q", buf.String())
	}
}
