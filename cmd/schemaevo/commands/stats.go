package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

type statsCommand struct {
	flags      analysisFlags
	draftsPath string
	filterPath string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(g *Globals) *cobra.Command {
	sc := &statsCommand{}

	cmd := &cobra.Command{
		Use:   "stats <root>",
		Short: "Summarize a lineage, its draft classification and a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "stats")
			if err != nil {
				return err
			}
			defer s.close()

			return sc.run(cmd, s, args[0])
		},
	}

	sc.flags.register(cmd, false)
	cmd.Flags().StringVar(&sc.draftsPath, "drafts", "", "Draft classification result file to summarize")
	cmd.Flags().StringVar(&sc.filterPath, "filter", "", "Version filter file to summarize")

	return cmd
}

func (sc *statsCommand) run(cmd *cobra.Command, s *session, root string) error {
	l, err := s.loadLineage(root, sc.flags.lineageFile(s))
	if err != nil {
		return err
	}

	err = s.render(cmd, sc.flags.format, report.Lineage(l))
	if err != nil {
		return err
	}

	if sc.draftsPath != "" {
		p, err := persist.NewPersister[[]drafts.Entry](sc.draftsPath)
		if err != nil {
			return err
		}

		entries, err := persist.LoadList(p)
		if err != nil {
			return fmt.Errorf("load draft results: %w", err)
		}

		missing := drafts.Relink(entries, l.Index())
		if missing > 0 {
			s.logger.Warn("draft results reference versions missing from the lineage", "versions", missing)
		}

		err = s.render(cmd, sc.flags.format, report.Drafts(entries))
		if err != nil {
			return err
		}
	}

	if sc.filterPath != "" {
		vf, err := filter.Load(sc.filterPath)
		if err != nil {
			return fmt.Errorf("load filter: %w", err)
		}

		unmatched := vf.Unmatched(l, s.logger)

		return s.render(cmd, sc.flags.format, report.Filter(vf, l, len(unmatched)))
	}

	return nil
}
