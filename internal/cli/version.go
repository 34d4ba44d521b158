package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at release build time via -ldflags; it stays "dev" for
// local builds.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lektor version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
