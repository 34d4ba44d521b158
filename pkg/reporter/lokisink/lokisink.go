// Package lokisink adapts the teacher's Loki HTTP client
// (pkg/logs/loki/loki.go) from a query adapter into a push sink: a
// reporter.Reporter that ships each build event as a log line to a
// Loki-compatible push endpoint, labeled by stream so a fleet of build
// agents can be queried together.
package lokisink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lektor-go/lektor/pkg/reporter"
)

// Sink pushes build events to a Loki push API endpoint
// (e.g. "http://localhost:3100").
type Sink struct {
	endpoint string
	client   *http.Client
	labels   map[string]string
}

// New returns a Sink targeting endpoint, tagging every stream with the
// given static labels (e.g. {"job": "lektor-build", "project": name}).
func New(endpoint string, labels map[string]string) *Sink {
	return &Sink{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		labels:   labels,
	}
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string        `json:"values"`
}

type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

func (s *Sink) push(level, message string) {
	labels := make(map[string]string, len(s.labels)+1)
	for k, v := range s.labels {
		labels[k] = v
	}
	labels["level"] = level

	req := lokiPushRequest{Streams: []lokiStream{{
		Stream: labels,
		Values: [][2]string{{strconv.FormatInt(time.Now().UnixNano(), 10), message}},
	}}}

	body, err := json.Marshal(req)
	if err != nil {
		return
	}

	// Best-effort: a reporter must never fail the build it's observing.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return
	}
	resp.Body.Close()
}

func (s *Sink) BuildStarted() { s.push("info", "build started") }

func (s *Sink) BuildFinished(d time.Duration) {
	s.push("info", fmt.Sprintf("build finished in %.2f sec", d.Seconds()))
}

func (s *Sink) ArtifactBuildStarted(artifactName string, isCurrent bool) {
	if !isCurrent {
		s.push("info", "building artifact "+artifactName)
	}
}

func (s *Sink) ArtifactBuildFinished(artifactName string, d time.Duration) {
	s.push("debug", fmt.Sprintf("artifact %s finished in %.2f sec", artifactName, d.Seconds()))
}

func (s *Sink) DirtyFlag(value bool) {
	if value {
		s.push("warn", "forcing sources dirty")
	}
}

func (s *Sink) SubArtifact(artifactName string) {
	s.push("debug", "sub artifact "+artifactName)
}

func (s *Sink) DependenciesRecorded(sources []string) {
	for _, src := range sources {
		s.push("debug", "dependency "+src)
	}
}

func (s *Sink) PrunedArtifact(artifactName string) {
	s.push("info", "pruned "+artifactName)
}

func (s *Sink) SourceEntered(sourcePath string) { s.push("debug", "entered source "+sourcePath) }

func (s *Sink) SourceLeft(sourcePath string, d time.Duration) {
	s.push("debug", fmt.Sprintf("left source %s after %.2f sec", sourcePath, d.Seconds()))
}

func (s *Sink) Debug(key string, value interface{}) {
	s.push("debug", fmt.Sprintf("%s=%v", key, value))
}

var _ reporter.Reporter = (*Sink)(nil)
