package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site",
		Long: `Walks the content tree and (re)builds every artifact whose sources
have changed since the last build, per the per-artifact dependency rows
recorded in the build-state store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			return e.run(func(ctx context.Context) error {
				return e.builder.BuildAll(ctx, prune)
			})
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "also delete artifacts whose sources no longer exist")

	return cmd
}
