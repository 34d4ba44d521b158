package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/lektor-go/lektor/pkg/builder"
	"github.com/lektor-go/lektor/pkg/buildstate"
	"github.com/lektor-go/lektor/pkg/buildstate/remotecache"
	"github.com/lektor-go/lektor/pkg/config"
	"github.com/lektor-go/lektor/pkg/content"
	"github.com/lektor-go/lektor/pkg/errors"
	"github.com/lektor-go/lektor/pkg/program"
	"github.com/lektor-go/lektor/pkg/provision"
	"github.com/lektor-go/lektor/pkg/reporter"
	"github.com/lektor-go/lektor/pkg/reporter/lokisink"
	"github.com/lektor-go/lektor/pkg/templateengine"
)

// buildStateDir is the project-relative directory holding the SQLite
// build-state file, per spec.md §6's recommendation.
const buildStateDir = ".lektor"

// engine bundles everything a CLI command needs to drive one build,
// assembled by loadEngine from the project config.
type engine struct {
	cfg     *config.ProjectConfig
	store   *buildstate.SQLiteStore
	builder *builder.Builder
	rep     reporter.Reporter
}

func (e *engine) Close() error {
	return e.store.Close()
}

// loadEngine loads the project config and wires every collaborator the
// builder needs: content root provisioning, the content/asset Pad,
// registered processors, the template renderer, the program registry, and
// the build-state store.
func loadEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, "lektor")

	contentRoot, err := provision.ResolveRoot(ctx, cfg.ContentRoot, cacheDir)
	if err != nil {
		return nil, err
	}

	assetRoot := filepath.Join(contentRoot, "assets")
	pad, err := content.Load(contentRoot, assetRoot, config.BuildProcessorFor(cfg.AssetProcessors), cfg.PaginationPerPage)
	if err != nil {
		return nil, err
	}

	procs, err := config.BuildProcessors(cfg.AssetProcessors)
	if err != nil {
		return nil, err
	}

	renderer := templateengine.New(filepath.Join(contentRoot, "templates"))
	registry := program.NewDefaultRegistry(renderer, procs)

	if err := os.MkdirAll(buildStateDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreSchema, "create build state directory", err)
	}
	statePath := filepath.Join(buildStateDir, "buildstate")

	if cfg.RemoteCache != nil {
		// A failed pull is non-fatal: the store still opens, just cold.
		if backend, err := config.BuildRemoteCacheBackend(cfg.RemoteCache); err == nil && backend != nil {
			_ = remotecache.Pull(ctx, backend, statePath)
		}
	}

	store, err := buildstate.Open(statePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreSchema, "open build state store", err)
	}

	b := builder.New(store, registry, pad, contentRoot, cfg.OutputRoot)

	return &engine{
		cfg:     cfg,
		store:   store,
		builder: b,
		rep:     makeReporter(),
	}, nil
}

// makeReporter builds the reporter this invocation should observe with:
// a CLIReporter gated by the repeatable -v flag, fanned out to a Loki
// sink when --loki-endpoint is set.
func makeReporter() reporter.Reporter {
	cli := reporter.NewCLIReporter(verbosity)
	if lokiSink == "" {
		return cli
	}
	return reporter.NewMulti(cli, lokisink.New(lokiSink, map[string]string{"app": "lektor"}))
}

// run activates e's reporter on the ambient reporter stack (package
// reporter) for the duration of fn, the way build programs expect to find
// it without it being threaded through every call.
func (e *engine) run(fn func(ctx context.Context) error) error {
	return reporter.Activate(e.rep, func() error {
		return fn(context.Background())
	})
}
