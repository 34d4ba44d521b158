package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newUpdateSourceInfosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-source-infos",
		Short: "Refresh the source-info index without building artifacts",
		Long: `Re-derives the source-info secondary index (component H) for every
source in the content tree. Useful for tools that only need to answer
"where does this URL path come from" queries and don't want to pay for a
full build.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			return e.run(func(ctx context.Context) error {
				return e.builder.UpdateAllSourceInfos(ctx)
			})
		},
	}
}
