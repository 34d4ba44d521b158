package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// CLIReporter prints build progress to a writer (stdout by default),
// adapted line-for-line from the original's CliReporter: verbosity gates
// what gets shown, indentation tracks artifact/source nesting, and each
// artifact gets a one-character sigil (U for updated, X for current, D
// for pruned).
type CLIReporter struct {
	Verbosity int
	Out       io.Writer

	mu          sync.Mutex
	indentation int
}

// NewCLIReporter returns a CLIReporter writing to os.Stdout at the given
// verbosity (0-4, per spec.md §4.G's show_* gates).
func NewCLIReporter(verbosity int) *CLIReporter {
	return &CLIReporter{Verbosity: verbosity, Out: os.Stdout}
}

func (r *CLIReporter) showBuildInfo() bool        { return r.Verbosity >= 1 }
func (r *CLIReporter) showCurrentArtifacts() bool { return r.Verbosity >= 2 }
func (r *CLIReporter) showArtifactInternals() bool { return r.Verbosity >= 3 }
func (r *CLIReporter) showSourceInternals() bool  { return r.Verbosity >= 3 }
func (r *CLIReporter) showDebugInfo() bool        { return r.Verbosity >= 4 }

func (r *CLIReporter) writeLine(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.Out, strings.Repeat("  ", r.indentation)+text)
}

func (r *CLIReporter) writeKV(key string, value interface{}) {
	r.writeLine(fmt.Sprintf("%s: %s", key, color.YellowString("%v", value)))
}

func (r *CLIReporter) indent()  { r.mu.Lock(); r.indentation++; r.mu.Unlock() }
func (r *CLIReporter) outdent() { r.mu.Lock(); r.indentation--; r.mu.Unlock() }

func (r *CLIReporter) BuildStarted() {
	r.writeLine(color.BlueString("Build started"))
}

func (r *CLIReporter) BuildFinished(d time.Duration) {
	r.writeLine(color.BlueString("Build finished in %.2f sec", d.Seconds()))
}

func (r *CLIReporter) ArtifactBuildStarted(artifactName string, isCurrent bool) {
	if isCurrent {
		if !r.showCurrentArtifacts() {
			r.indent()
			return
		}
		r.writeLine(color.CyanString("X") + " " + artifactName)
	} else {
		r.writeLine(color.GreenString("U") + " " + artifactName)
	}
	r.indent()
}

func (r *CLIReporter) ArtifactBuildFinished(artifactName string, d time.Duration) {
	r.outdent()
}

func (r *CLIReporter) DirtyFlag(value bool) {
	if r.showArtifactInternals() && (value || r.showDebugInfo()) {
		r.writeKV("forcing sources dirty", value)
	}
}

func (r *CLIReporter) SubArtifact(artifactName string) {
	if r.showArtifactInternals() {
		r.writeKV("sub artifact", artifactName)
	}
}

func (r *CLIReporter) DependenciesRecorded(sources []string) {
	for _, s := range sources {
		r.Debug("dependency", s)
	}
}

func (r *CLIReporter) PrunedArtifact(artifactName string) {
	r.writeLine(color.RedString("D") + " " + artifactName)
}

func (r *CLIReporter) SourceEntered(sourcePath string) {
	if !r.showSourceInternals() {
		return
	}
	r.writeLine("Source " + color.MagentaString("%q", sourcePath))
	r.indent()
}

func (r *CLIReporter) SourceLeft(sourcePath string, d time.Duration) {
	if r.showSourceInternals() {
		r.outdent()
	}
}

func (r *CLIReporter) Debug(key string, value interface{}) {
	if r.showDebugInfo() {
		r.writeKV(key, value)
	}
}

var _ Reporter = (*CLIReporter)(nil)
