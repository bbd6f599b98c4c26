// Package main provides the entry point for the schemaevo CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/cmd/schemaevo/commands"
	"github.com/Sumatoshi-tech/schemaevo/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "schemaevo",
		Short: "Schema evolution mining over git history",
		Long: `schemaevo reconstructs the history of JSON Schema files across the
first-parent commits of a repository and analyzes how they evolve.

Workflow:
  clone        Check out every first-parent commit of a repository
  lineage      Rebuild file identities across the checkouts
  drafts       Classify every version by JSON Schema draft
  filter       Record versions rejected by a draft filter
  containment  Check containment between successive versions
  stats        Summarize a lineage and its draft classification
  symbols      Summarize containment results
  compare      Compare two containment result files
  show         Print the history of one file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "config file (default .schemaevo.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(
		commands.NewCloneCommand(globals),
		commands.NewLineageCommand(globals),
		commands.NewDraftsCommand(globals),
		commands.NewFilterCommand(globals),
		commands.NewContainmentCommand(globals),
		commands.NewStatsCommand(globals),
		commands.NewSymbolsCommand(globals),
		commands.NewCompareCommand(globals),
		commands.NewShowCommand(globals),
		versionCmd(),
	)

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
			fmt.Fprintf(os.Stdout, "schemaevo %s\n", version.String())
		},
	}
}
