package ciworkflow

import (
	"bytes"
	"fmt"
	"strings"
)

// GitLabCIGenerator generates GitLab CI pipeline YAML.
type GitLabCIGenerator struct{}

// NewGitLabCIGenerator creates a new GitLab CI generator.
func NewGitLabCIGenerator() *GitLabCIGenerator {
	return &GitLabCIGenerator{}
}

// DefaultOutputPath returns the conventional path for the pipeline.
func (g *GitLabCIGenerator) DefaultOutputPath() string {
	return ".gitlab-ci.yml"
}

// Generate produces a GitLab CI pipeline YAML file.
func (g *GitLabCIGenerator) Generate(w Workflow) ([]byte, error) {
	var buf bytes.Buffer

	writeGitLabSetupComment(&buf, w)

	stages := deriveStages(w.Jobs)
	buf.WriteString("stages:\n")
	for _, stage := range stages {
		buf.WriteString(fmt.Sprintf("  - %s\n", stage))
	}
	buf.WriteString("\n")

	if len(w.EnvVars) > 0 {
		buf.WriteString("variables:\n")
		for _, k := range sortedMapKeys(w.EnvVars) {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", k, w.EnvVars[k]))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(fmt.Sprintf(".setup-go: &setup-go\n  image: golang:%s\n\n", goImageTag(w.GoVersion)))

	stageMap := assignStages(w.Jobs, stages)
	for _, job := range w.Jobs {
		writeGitLabJob(&buf, job, stageMap[job.ID])
	}

	return buf.Bytes(), nil
}

func goImageTag(version string) string {
	if version == "" {
		return "1.24"
	}
	return version
}

// writeGitLabJob writes a single job in GitLab CI format.
func writeGitLabJob(buf *bytes.Buffer, job Job, stage string) {
	buf.WriteString(fmt.Sprintf("%s:\n", job.ID))
	buf.WriteString(fmt.Sprintf("  stage: %s\n", stage))
	buf.WriteString("  <<: *setup-go\n")

	if len(job.DependsOn) > 0 {
		buf.WriteString("  needs:\n")
		for _, dep := range job.DependsOn {
			buf.WriteString(fmt.Sprintf("    - %s\n", dep))
		}
	}

	buf.WriteString("  script:\n")
	for _, step := range job.Steps {
		switch {
		case step.Uses == "actions/checkout@v4":
			continue // GitLab checks out the repository implicitly.
		case step.Uses == "actions/setup-go@v5":
			continue // handled by the setup-go image.
		case step.Run != "":
			buf.WriteString(fmt.Sprintf("    - %s\n", step.Run))
		}
	}

	buf.WriteString("\n")
}

// writeGitLabSetupComment writes configuration instructions.
func writeGitLabSetupComment(buf *bytes.Buffer, w Workflow) {
	if len(w.Variables) == 0 {
		return
	}

	var secrets, vars []string
	for _, v := range w.Variables {
		if v.Sensitive {
			secrets = append(secrets, v.EnvName)
		} else {
			vars = append(vars, v.EnvName)
		}
	}

	buf.WriteString("# Configure these in Settings > CI/CD > Variables:\n")
	if len(secrets) > 0 {
		buf.WriteString(fmt.Sprintf("#   Protected/Masked: %s\n", strings.Join(secrets, ", ")))
	}
	if len(vars) > 0 {
		buf.WriteString(fmt.Sprintf("#   Variables: %s\n", strings.Join(vars, ", ")))
	}
	buf.WriteString("\n")
}

// deriveStages creates stage names from the job DAG depth.
func deriveStages(jobs []Job) []string {
	if len(jobs) == 0 {
		return nil
	}
	depths := computeJobDepths(jobs)
	maxDepth := 0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}
	stages := make([]string, maxDepth+1)
	for i := range stages {
		stages[i] = fmt.Sprintf("stage-%d", i)
	}
	return stages
}

// assignStages maps job IDs to their stage names based on depth.
func assignStages(jobs []Job, stages []string) map[string]string {
	depths := computeJobDepths(jobs)
	result := make(map[string]string, len(jobs))
	for _, job := range jobs {
		d := depths[job.ID]
		if d < len(stages) {
			result[job.ID] = stages[d]
		} else {
			result[job.ID] = stages[len(stages)-1]
		}
	}
	return result
}

// computeJobDepths returns the topological depth of each job.
func computeJobDepths(jobs []Job) map[string]int {
	depths := make(map[string]int, len(jobs))
	for _, job := range jobs {
		depths[job.ID] = 0
	}
	changed := true
	for changed {
		changed = false
		for _, job := range jobs {
			for _, dep := range job.DependsOn {
				if depDepth, ok := depths[dep]; ok {
					newDepth := depDepth + 1
					if newDepth > depths[job.ID] {
						depths[job.ID] = newDepth
						changed = true
					}
				}
			}
		}
	}
	return depths
}
