package ciworkflow

// BuildOptions configures the generated workflow.
type BuildOptions struct {
	// GoVersion is the toolchain version to install.
	GoVersion string
	// Prune, if true, runs `lektor prune` after a successful build.
	Prune bool
	// RemoteCache indicates the project is configured with a remote
	// build-state cache (component K): the workflow restores it before
	// building and pushes it back afterward.
	RemoteCache bool
	// PublishArtifact, if true, uploads the output directory as a
	// workflow artifact named "site".
	PublishArtifact bool
}

// BuildWorkflow constructs the single-job "checkout, build, publish"
// workflow SPEC_FULL.md §4.L describes, adapted from the teacher's job
// generation (BuildJobs): there, a topologically sorted dependency graph
// becomes one job per resource; here, a build has exactly one linear job,
// so the "graph" is a single node. RemoteCache/PublishArtifact fan the one
// job's step list out without needing a DAG of jobs.
func BuildWorkflow(opts BuildOptions) Workflow {
	goVersion := opts.GoVersion
	if goVersion == "" {
		goVersion = "1.24"
	}

	steps := []Step{
		{Uses: "actions/checkout@v4"},
		{Uses: "actions/setup-go@v5", With: map[string]string{"go-version": goVersion}},
	}

	var vars []WorkflowVariable
	if opts.RemoteCache {
		steps = append(steps, Step{
			Name: "Restore build state",
			Run:  "lektor ci restore-cache",
		})
		vars = append(vars,
			WorkflowVariable{EnvName: "LEKTOR_REMOTE_CACHE_BACKEND", Description: "remote cache backend (s3, gcs, azurerm, local)"},
			WorkflowVariable{EnvName: "LEKTOR_REMOTE_CACHE_BUCKET", Description: "remote cache bucket/container"},
		)
	}

	buildCmd := "lektor build"
	if opts.Prune {
		buildCmd += " --prune"
	}
	steps = append(steps, Step{Name: "Build", Run: buildCmd})

	if opts.RemoteCache {
		steps = append(steps, Step{Name: "Push build state", Run: "lektor ci push-cache"})
	}
	if opts.PublishArtifact {
		steps = append(steps, Step{
			Uses: "actions/upload-artifact@v4",
			With: map[string]string{"name": "site", "path": "htdocs"},
		})
	}

	return Workflow{
		Name:      "Build site",
		GoVersion: goVersion,
		Jobs: []Job{{
			ID:    "build",
			Name:  "Build",
			Steps: steps,
		}},
		Variables: vars,
	}
}
