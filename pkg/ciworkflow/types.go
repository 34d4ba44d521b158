// Package ciworkflow generates CI workflow files that run an incremental
// build (component L, SPEC_FULL.md §4.L). It supports multiple CI
// providers (GitHub Actions, GitLab CI, CircleCI), repointed from the
// teacher's "deploy this dependency graph" job generation to "checkout,
// restore build-state, build, prune, publish output."
package ciworkflow

// OutputType identifies the CI provider to generate for.
type OutputType string

const (
	TypeGitHubActions OutputType = "github-actions"
	TypeGitLabCI      OutputType = "gitlab-ci"
	TypeCircleCI      OutputType = "circleci"
)

// ValidOutputTypes returns all valid output type values.
func ValidOutputTypes() []string {
	return []string{string(TypeGitHubActions), string(TypeGitLabCI), string(TypeCircleCI)}
}

// Workflow is the intermediate representation of a build workflow that CI
// provider generators render into their own YAML dialect.
type Workflow struct {
	// Name is the workflow display name, e.g. "Build site".
	Name string

	// Jobs is the ordered list of jobs, in topological order.
	Jobs []Job

	// EnvVars are workflow-level environment variables.
	EnvVars map[string]string

	// Variables are secrets/variables a reader must configure in the CI
	// provider before the workflow can run (e.g. remote cache credentials).
	Variables []WorkflowVariable

	// GoVersion is the Go toolchain version the setup step installs.
	GoVersion string
}

// WorkflowVariable documents a secret or variable the generator doesn't
// set itself but the workflow depends on, so a setup comment can list it.
type WorkflowVariable struct {
	EnvName     string
	Sensitive   bool
	Description string
}

// Job is a single CI job.
type Job struct {
	ID        string
	Name      string
	DependsOn []string
	Steps     []Step
}

// Step is a single step within a job.
type Step struct {
	Name string
	Run  string

	// Uses is a CI action reference (GitHub Actions specific); With
	// carries its inputs. Other providers render Uses as an inline step
	// they know how to reproduce.
	Uses string
	With map[string]string
}

// Generator is the interface for CI provider-specific workflow generators.
type Generator interface {
	Generate(w Workflow) ([]byte, error)
	DefaultOutputPath() string
}
