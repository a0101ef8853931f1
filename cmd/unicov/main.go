// Package main provides the entry point for the unicov CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphbio/unicov/cmd/unicov/commands"
	"github.com/graphbio/unicov/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "unicov",
		Short: "Unicov - coverage-tracked unitig index builder",
		Long: `Unicov folds raw sequences into a compacted unitig index and tracks
per-window coverage with a compact 2-bit counter store.

Commands:
  build     Build an index from newline-delimited raw sequences
  plot      Render per-unitig coverage as an HTML chart`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewPlotCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "unicov %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
