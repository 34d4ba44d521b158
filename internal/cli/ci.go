package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lektor-go/lektor/pkg/buildstate/remotecache"
	"github.com/lektor-go/lektor/pkg/ciworkflow"
	"github.com/lektor-go/lektor/pkg/config"
	"github.com/lektor-go/lektor/pkg/errors"
)

func newCICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Continuous-integration helpers",
		Long:  `Commands that support running lektor build from a CI pipeline.`,
	}

	cmd.AddCommand(newCIGenerateCmd())
	cmd.AddCommand(newCIRestoreCacheCmd())
	cmd.AddCommand(newCIPushCacheCmd())

	return cmd
}

func newCIGenerateCmd() *cobra.Command {
	var (
		provider        string
		goVersion       string
		prune           bool
		remoteCache     bool
		publishArtifact bool
		outputPath      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a CI pipeline file that runs lektor build",
		RunE: func(cmd *cobra.Command, args []string) error {
			var gen ciworkflow.Generator
			switch provider {
			case "github-actions":
				gen = ciworkflow.NewGitHubActionsGenerator()
			case "gitlab-ci":
				gen = ciworkflow.NewGitLabCIGenerator()
			case "circleci":
				gen = ciworkflow.NewCircleCIGenerator()
			default:
				return errors.New(errors.ErrCodeConfig, "unknown CI provider "+provider).
					WithDetail("known_providers", []string{"github-actions", "gitlab-ci", "circleci"})
			}

			w := ciworkflow.BuildWorkflow(ciworkflow.BuildOptions{
				GoVersion:       goVersion,
				Prune:           prune,
				RemoteCache:     remoteCache,
				PublishArtifact: publishArtifact,
			})

			out, err := gen.Generate(w)
			if err != nil {
				return err
			}

			path := outputPath
			if path == "" {
				path = gen.DefaultOutputPath()
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errors.Wrap(errors.ErrCodeConfig, "create CI workflow directory", err)
			}
			if err := os.WriteFile(path, out, 0644); err != nil {
				return errors.Wrap(errors.ErrCodeConfig, "write CI workflow file", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "github-actions", "CI provider: github-actions, gitlab-ci, or circleci")
	cmd.Flags().StringVar(&goVersion, "go-version", "", "Go toolchain version the pipeline should use")
	cmd.Flags().BoolVar(&prune, "prune", false, "pass --prune to the generated build step")
	cmd.Flags().BoolVar(&remoteCache, "remote-cache", false, "restore and push the build-state cache around the build step")
	cmd.Flags().BoolVar(&publishArtifact, "publish-artifact", false, "upload the built site as a pipeline artifact")
	cmd.Flags().StringVar(&outputPath, "output", "", "output path (default: the provider's conventional path)")

	return cmd
}

func newCIRestoreCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-cache",
		Short: "Pull the build-state cache from the configured remote backend",
		Long: `Called at the start of a CI build, before 'lektor build', so the
incremental build-state store starts warm instead of empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			backend, err := config.BuildRemoteCacheBackend(cfg.RemoteCache)
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New(errors.ErrCodeConfig, "remote_cache is not configured")
			}
			if err := os.MkdirAll(buildStateDir, 0755); err != nil {
				return errors.Wrap(errors.ErrCodeStoreSchema, "create build state directory", err)
			}
			return remotecache.Pull(cmd.Context(), backend, filepath.Join(buildStateDir, "buildstate"))
		},
	}
}

func newCIPushCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push-cache",
		Short: "Push the build-state cache to the configured remote backend",
		Long: `Called at the end of a CI build, after 'lektor build', so the next
CI agent inherits this run's incremental build state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			backend, err := config.BuildRemoteCacheBackend(cfg.RemoteCache)
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New(errors.ErrCodeConfig, "remote_cache is not configured")
			}
			return remotecache.Push(cmd.Context(), backend, filepath.Join(buildStateDir, "buildstate"))
		},
	}
}
