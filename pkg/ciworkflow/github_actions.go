package ciworkflow

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// GitHubActionsGenerator generates GitHub Actions workflow YAML.
type GitHubActionsGenerator struct{}

// NewGitHubActionsGenerator creates a new GitHub Actions generator.
func NewGitHubActionsGenerator() *GitHubActionsGenerator {
	return &GitHubActionsGenerator{}
}

// DefaultOutputPath returns the conventional path for the build workflow.
func (g *GitHubActionsGenerator) DefaultOutputPath() string {
	return ".github/workflows/build.yml"
}

// Generate produces a GitHub Actions build workflow YAML file.
func (g *GitHubActionsGenerator) Generate(w Workflow) ([]byte, error) {
	var buf bytes.Buffer

	writeSetupComment(&buf, w)

	buf.WriteString(fmt.Sprintf("name: %s\n", w.Name))
	buf.WriteString("on:\n")
	buf.WriteString("  push:\n")
	buf.WriteString("    branches: [main]\n")
	buf.WriteString("\n")

	if len(w.EnvVars) > 0 {
		buf.WriteString("env:\n")
		for _, k := range sortedMapKeys(w.EnvVars) {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", k, w.EnvVars[k]))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("jobs:\n")
	for _, job := range w.Jobs {
		writeGitHubJob(&buf, job)
	}

	return buf.Bytes(), nil
}

func writeGitHubJob(buf *bytes.Buffer, job Job) {
	buf.WriteString(fmt.Sprintf("  %s:\n", job.ID))
	buf.WriteString(fmt.Sprintf("    name: %s\n", job.Name))
	if len(job.DependsOn) > 0 {
		buf.WriteString(fmt.Sprintf("    needs: [%s]\n", strings.Join(job.DependsOn, ", ")))
	}
	buf.WriteString("    runs-on: ubuntu-latest\n")
	buf.WriteString("    steps:\n")

	for _, step := range job.Steps {
		if step.Uses != "" {
			buf.WriteString(fmt.Sprintf("      - uses: %s\n", step.Uses))
			if len(step.With) > 0 {
				buf.WriteString("        with:\n")
				for _, k := range sortedMapKeys(step.With) {
					buf.WriteString(fmt.Sprintf("          %s: %s\n", k, step.With[k]))
				}
			}
			continue
		}
		buf.WriteString(fmt.Sprintf("      - name: %s\n", step.Name))
		buf.WriteString(fmt.Sprintf("        run: %s\n", step.Run))
	}

	buf.WriteString("\n")
}

// writeSetupComment writes a comment block describing required CI configuration.
func writeSetupComment(buf *bytes.Buffer, w Workflow) {
	if len(w.Variables) == 0 {
		return
	}

	var secrets, vars []string
	for _, v := range w.Variables {
		desc := v.EnvName
		if v.Description != "" {
			desc += " (" + v.Description + ")"
		}
		if v.Sensitive {
			secrets = append(secrets, desc)
		} else {
			vars = append(vars, desc)
		}
	}

	buf.WriteString("# Configure these in Settings > Secrets and variables > Actions:\n")
	if len(secrets) > 0 {
		buf.WriteString(fmt.Sprintf("#   Secrets: %s\n", strings.Join(secrets, ", ")))
	}
	if len(vars) > 0 {
		buf.WriteString(fmt.Sprintf("#   Variables: %s\n", strings.Join(vars, ", ")))
	}
	buf.WriteString("\n")
}

// sortedMapKeys returns sorted keys from a string map.
func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
