package reporter

import "time"

// Multi fans the same event out to every wrapped Reporter in order,
// adapted from the teacher's pkg/logs multiplexer idea of combining
// several log sinks behind one interface — here the sinks are CLI output
// plus any number of shipping backends (e.g. lokisink) instead of
// multiple containers' log streams.
type Multi struct {
	Reporters []Reporter
}

// NewMulti returns a Reporter that dispatches to all of rs.
func NewMulti(rs ...Reporter) *Multi { return &Multi{Reporters: rs} }

func (m *Multi) BuildStarted() {
	for _, r := range m.Reporters {
		r.BuildStarted()
	}
}

func (m *Multi) BuildFinished(d time.Duration) {
	for _, r := range m.Reporters {
		r.BuildFinished(d)
	}
}

func (m *Multi) ArtifactBuildStarted(artifactName string, isCurrent bool) {
	for _, r := range m.Reporters {
		r.ArtifactBuildStarted(artifactName, isCurrent)
	}
}

func (m *Multi) ArtifactBuildFinished(artifactName string, d time.Duration) {
	for _, r := range m.Reporters {
		r.ArtifactBuildFinished(artifactName, d)
	}
}

func (m *Multi) DirtyFlag(value bool) {
	for _, r := range m.Reporters {
		r.DirtyFlag(value)
	}
}

func (m *Multi) SubArtifact(artifactName string) {
	for _, r := range m.Reporters {
		r.SubArtifact(artifactName)
	}
}

func (m *Multi) DependenciesRecorded(sources []string) {
	for _, r := range m.Reporters {
		r.DependenciesRecorded(sources)
	}
}

func (m *Multi) PrunedArtifact(artifactName string) {
	for _, r := range m.Reporters {
		r.PrunedArtifact(artifactName)
	}
}

func (m *Multi) SourceEntered(sourcePath string) {
	for _, r := range m.Reporters {
		r.SourceEntered(sourcePath)
	}
}

func (m *Multi) SourceLeft(sourcePath string, d time.Duration) {
	for _, r := range m.Reporters {
		r.SourceLeft(sourcePath, d)
	}
}

func (m *Multi) Debug(key string, value interface{}) {
	for _, r := range m.Reporters {
		r.Debug(key, value)
	}
}

var _ Reporter = (*Multi)(nil)
