package ciworkflow

import (
	"strings"
	"testing"
)

func TestGitLabCIGenerateContainsStages(t *testing.T) {
	w := BuildWorkflow(BuildOptions{Prune: true})
	g := NewGitLabCIGenerator()

	out, err := g.Generate(w)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	yaml := string(out)

	for _, want := range []string{"stages:", "- stage-0", "build:", "lektor build --prune"} {
		if !strings.Contains(yaml, want) {
			t.Errorf("expected generated YAML to contain %q\n%s", want, yaml)
		}
	}
}

func TestGitLabCIDefaultOutputPath(t *testing.T) {
	g := NewGitLabCIGenerator()
	if got := g.DefaultOutputPath(); got != ".gitlab-ci.yml" {
		t.Errorf("unexpected default output path %q", got)
	}
}

func TestDeriveStagesSingleJobIsOneStage(t *testing.T) {
	stages := deriveStages([]Job{{ID: "build"}})
	if len(stages) != 1 {
		t.Fatalf("expected exactly one stage for a single job, got %v", stages)
	}
}
