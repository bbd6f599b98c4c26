package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/config"
	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

// NewSymbolsCommand creates the symbols command.
func NewSymbolsCommand(g *Globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "symbols <results>",
		Short: "Summarize a containment result file by symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "symbols")
			if err != nil {
				return err
			}
			defer s.close()

			entries, err := loadContainment(args[0])
			if err != nil {
				return err
			}

			return s.render(cmd, format, report.Symbols(entries))
		},
	}

	cmd.Flags().StringVar(&format, "format", config.DefaultOutputFormat, "Output format: table, json, yaml")

	return cmd
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(g *Globals) *cobra.Command {
	var (
		format  string
		details bool
	)

	cmd := &cobra.Command{
		Use:   "compare <results-a> <results-b>",
		Short: "Compare the symbols of two containment result files",
		Long: `Compare classifies every version pair of both result files and counts the
pairs whose symbols agree and the pairs whose symbols differ. Both files
must cover the same version pairs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "compare")
			if err != nil {
				return err
			}
			defer s.close()

			a, err := loadContainment(args[0])
			if err != nil {
				return err
			}

			b, err := loadContainment(args[1])
			if err != nil {
				return err
			}

			cmp, err := report.Compare(a, b, details)
			if err != nil {
				return err
			}

			return s.render(cmd, format, cmp)
		},
	}

	cmd.Flags().StringVar(&format, "format", config.DefaultOutputFormat, "Output format: table, json, yaml")
	cmd.Flags().BoolVar(&details, "details", false, "List every pair whose symbols differ")

	return cmd
}

func loadContainment(path string) ([]containment.Entry, error) {
	p, err := persist.NewPersister[[]containment.Entry](path)
	if err != nil {
		return nil, err
	}

	entries, err := persist.LoadList(p)
	if err != nil {
		return nil, fmt.Errorf("load containment results %s: %w", path, err)
	}

	return entries, nil
}
