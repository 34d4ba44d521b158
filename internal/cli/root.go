// Package cli implements the lektor CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbosity int
	lokiSink  string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "lektor",
	Short: "Build static sites incrementally",
	Long: `lektor builds a static site from a content tree and a set of
templates, tracking per-artifact dependencies so that re-running a build
only redoes the work a changed file actually affects.

Examples:
  lektor build
  lektor build --prune
  lektor prune --all
  lektor ci generate --provider github-actions`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "project config file (default: lektor.yaml in the working directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase output verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&lokiSink, "loki-endpoint", "", "also push build events to this Loki push endpoint")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newUpdateSourceInfosCmd())
	rootCmd.AddCommand(newCICmd())
	rootCmd.AddCommand(newVersionCmd())
}
