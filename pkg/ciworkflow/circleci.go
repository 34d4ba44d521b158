package ciworkflow

import (
	"bytes"
	"fmt"
	"strings"
)

// CircleCIGenerator generates CircleCI pipeline YAML.
type CircleCIGenerator struct{}

// NewCircleCIGenerator creates a new CircleCI generator.
func NewCircleCIGenerator() *CircleCIGenerator {
	return &CircleCIGenerator{}
}

// DefaultOutputPath returns the conventional path for the pipeline.
func (g *CircleCIGenerator) DefaultOutputPath() string {
	return ".circleci/config.yml"
}

// Generate produces a CircleCI pipeline YAML file.
func (g *CircleCIGenerator) Generate(w Workflow) ([]byte, error) {
	var buf bytes.Buffer

	writeCircleCISetupComment(&buf, w)

	buf.WriteString("version: 2.1\n\n")

	buf.WriteString("jobs:\n")
	for _, job := range w.Jobs {
		writeCircleCIJob(&buf, job, w.GoVersion)
	}

	buf.WriteString("workflows:\n")
	workflowID := sanitizeCircleCIID(w.Name)
	buf.WriteString(fmt.Sprintf("  %s:\n", workflowID))
	buf.WriteString("    jobs:\n")
	for _, job := range w.Jobs {
		if len(job.DependsOn) == 0 {
			buf.WriteString(fmt.Sprintf("      - %s\n", job.ID))
			continue
		}
		buf.WriteString(fmt.Sprintf("      - %s:\n", job.ID))
		buf.WriteString("          requires:\n")
		for _, dep := range job.DependsOn {
			buf.WriteString(fmt.Sprintf("            - %s\n", dep))
		}
	}

	return buf.Bytes(), nil
}

// writeCircleCIJob writes a single job in CircleCI format.
func writeCircleCIJob(buf *bytes.Buffer, job Job, goVersion string) {
	buf.WriteString(fmt.Sprintf("  %s:\n", job.ID))
	buf.WriteString(fmt.Sprintf("    docker:\n      - image: cimg/go:%s\n", goImageTag(goVersion)))
	buf.WriteString("    steps:\n")

	for _, step := range job.Steps {
		switch {
		case step.Uses == "actions/checkout@v4":
			buf.WriteString("      - checkout\n")
		case step.Uses == "actions/setup-go@v5":
			continue // handled by the cimg/go image.
		case step.Uses == "actions/upload-artifact@v4":
			buf.WriteString("      - store_artifacts:\n")
			buf.WriteString(fmt.Sprintf("          path: %s\n", step.With["path"]))
		case step.Run != "":
			buf.WriteString("      - run:\n")
			buf.WriteString(fmt.Sprintf("          name: %s\n", step.Name))
			buf.WriteString(fmt.Sprintf("          command: %s\n", step.Run))
		}
	}

	buf.WriteString("\n")
}

// writeCircleCISetupComment writes configuration instructions.
func writeCircleCISetupComment(buf *bytes.Buffer, w Workflow) {
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

	buf.WriteString("# Configure these in Project Settings > Environment Variables:\n")
	if len(secrets) > 0 {
		buf.WriteString(fmt.Sprintf("#   Secrets: %s\n", strings.Join(secrets, ", ")))
	}
	if len(vars) > 0 {
		buf.WriteString(fmt.Sprintf("#   Variables: %s\n", strings.Join(vars, ", ")))
	}
	buf.WriteString("\n")
}

// sanitizeCircleCIID makes a workflow name safe for YAML keys.
func sanitizeCircleCIID(name string) string {
	r := strings.NewReplacer(" ", "-", "/", "-", ".", "-")
	return strings.ToLower(r.Replace(name))
}
