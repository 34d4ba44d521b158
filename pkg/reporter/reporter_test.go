package reporter

import (
	"testing"
	"time"
)

func TestCurrentDefaultsToNull(t *testing.T) {
	if Current() != nullReporter {
		t.Fatal("expected Current to be the null reporter before any Push")
	}
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) BuildStarted()                              { r.events = append(r.events, "started") }
func (r *recordingReporter) BuildFinished(time.Duration)                 { r.events = append(r.events, "finished") }
func (r *recordingReporter) ArtifactBuildStarted(name string, cur bool)  { r.events = append(r.events, "artifact-start:"+name) }
func (r *recordingReporter) ArtifactBuildFinished(string, time.Duration) {}
func (r *recordingReporter) DirtyFlag(bool)                              {}
func (r *recordingReporter) SubArtifact(string)                          {}
func (r *recordingReporter) DependenciesRecorded([]string)               {}
func (r *recordingReporter) PrunedArtifact(string)                       {}
func (r *recordingReporter) SourceEntered(string)                        {}
func (r *recordingReporter) SourceLeft(string, time.Duration)            {}
func (r *recordingReporter) Debug(string, interface{})                   {}

func TestPushPopRestoresNull(t *testing.T) {
	rec := &recordingReporter{}
	Push(rec)
	if Current() != Reporter(rec) {
		t.Fatal("expected Current to return the pushed reporter")
	}
	Pop()
	if Current() != nullReporter {
		t.Fatal("expected Current to fall back to Null after Pop")
	}
}

func TestActivateRunsFnAndAlwaysPops(t *testing.T) {
	rec := &recordingReporter{}
	err := Activate(rec, func() error {
		if Current() != Reporter(rec) {
			t.Fatal("expected the activated reporter to be current inside fn")
		}
		Current().BuildStarted()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if Current() != nullReporter {
		t.Fatal("expected Activate to pop the reporter after fn returns")
	}
	if len(rec.events) != 1 || rec.events[0] != "started" {
		t.Fatalf("unexpected events recorded: %v", rec.events)
	}
}

func TestActivatePopsEvenOnError(t *testing.T) {
	rec := &recordingReporter{}
	err := Activate(rec, func() error { return errBoom })
	if err != errBoom {
		t.Fatalf("expected Activate to propagate fn's error, got %v", err)
	}
	if Current() != nullReporter {
		t.Fatal("expected Activate to pop the reporter even when fn errors")
	}
}

var errBoom = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
