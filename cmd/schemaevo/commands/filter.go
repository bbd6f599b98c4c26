package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

type filterCommand struct {
	flags analysisFlags
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(g *Globals) *cobra.Command {
	fc := &filterCommand{}

	cmd := &cobra.Command{
		Use:   "filter <root> <name>",
		Short: "Record the versions a named draft filter rejects",
		Long: `Filter evaluates a named filter on every content version of the lineage
and writes the rejected versions to a filter file that drafts and containment
accept with --filter.

Filters: ` + strings.Join(filter.Names(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "filter")
			if err != nil {
				return err
			}
			defer s.close()

			return fc.run(cmd, s, args[0], args[1])
		},
	}

	fc.flags.register(cmd, true)

	return cmd
}

func (fc *filterCommand) run(cmd *cobra.Command, s *session, root, name string) error {
	s.overrideWorkers(cmd, fc.flags.workers)

	classifier, err := drafts.NewClassifier(drafts.Draft4, drafts.Draft6, drafts.Draft7)
	if err != nil {
		return err
	}

	predicate, err := filter.Named(name, classifier)
	if err != nil {
		return err
	}

	l, err := s.loadLineage(root, fc.flags.lineageFile(s))
	if err != nil {
		return err
	}

	b := &filter.Builder{
		Name:            name,
		Predicate:       predicate,
		Workers:         s.cfg.Workers,
		Logger:          s.logger,
		DispatchOptions: s.dispatch,
	}

	vf, err := b.Build(cmd.Context(), allFiles(l))
	if err != nil {
		return err
	}

	path := s.resultPath(fc.flags.output, "filter-"+name)

	err = vf.Save(path)
	if err != nil {
		return fmt.Errorf("save filter: %w", err)
	}

	s.logger.Info("filter written", "path", path, "rejected", len(vf.Invalid))

	return s.render(cmd, fc.flags.format, report.Filter(vf, l, 0))
}
