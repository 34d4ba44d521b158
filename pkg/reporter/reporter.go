// Package reporter implements the build engine's observer interface
// (component G, spec.md §4.G): an ambiently-activated sink for build
// events, defaulting to a no-op so the core never pays for reporting it
// doesn't need.
package reporter

import (
	"sync"
	"time"
)

// Reporter receives the eleven event kinds spec.md §4.G names.
type Reporter interface {
	BuildStarted()
	BuildFinished(duration time.Duration)
	ArtifactBuildStarted(artifactName string, isCurrent bool)
	ArtifactBuildFinished(artifactName string, duration time.Duration)
	DirtyFlag(value bool)
	SubArtifact(artifactName string)
	DependenciesRecorded(sources []string)
	PrunedArtifact(artifactName string)
	SourceEntered(sourcePath string)
	SourceLeft(sourcePath string, duration time.Duration)
	Debug(key string, value interface{})
}

// Null is a Reporter whose methods all do nothing, active whenever no
// reporter has been pushed (spec.md §4.G: "a null reporter is active by
// default").
type Null struct{}

func (Null) BuildStarted()                                          {}
func (Null) BuildFinished(time.Duration)                             {}
func (Null) ArtifactBuildStarted(string, bool)                       {}
func (Null) ArtifactBuildFinished(string, time.Duration)             {}
func (Null) DirtyFlag(bool)                                          {}
func (Null) SubArtifact(string)                                      {}
func (Null) DependenciesRecorded([]string)                           {}
func (Null) PrunedArtifact(string)                                   {}
func (Null) SourceEntered(string)                                    {}
func (Null) SourceLeft(string, time.Duration)                        {}
func (Null) Debug(string, interface{})                               {}

var nullReporter Reporter = Null{}

// stack is the process-wide LIFO of active reporters, the same ambient-
// stack idiom buildctx uses for the per-artifact context: "CLI swaps one
// in via a scoped activation" (spec.md §4.G).
var (
	mu    sync.Mutex
	stack []Reporter
)

// Push makes r the current reporter.
func Push(r Reporter) {
	mu.Lock()
	defer mu.Unlock()
	stack = append(stack, r)
}

// Pop removes the most recently pushed reporter.
func Pop() {
	mu.Lock()
	defer mu.Unlock()
	if len(stack) == 0 {
		return
	}
	stack = stack[:len(stack)-1]
}

// Current returns the active reporter, or Null if none has been pushed.
func Current() Reporter {
	mu.Lock()
	defer mu.Unlock()
	if len(stack) == 0 {
		return nullReporter
	}
	return stack[len(stack)-1]
}

// Activate pushes r, runs fn, and pops r regardless of fn's outcome — the
// scoped activation a CLI front-end uses to wrap a single build run.
func Activate(r Reporter, fn func() error) error {
	Push(r)
	defer Pop()
	return fn()
}
