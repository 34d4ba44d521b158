package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete orphaned artifacts",
		Long: `Deletes output artifacts whose source no longer exists in the
content tree, without rebuilding anything. Use --all to remove every
non-ignored file under the output directory, tracked or not, and its
build-state rows instead of just the orphans.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			return e.run(func(ctx context.Context) error {
				return e.builder.Prune(ctx, all)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every output file, not just orphans")

	return cmd
}
