package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

type containmentCommand struct {
	flags      analysisFlags
	resume     bool
	backend    string
	selfCheck  bool
	filterPath string
}

// NewContainmentCommand creates the containment command.
func NewContainmentCommand(g *Globals) *cobra.Command {
	cc := &containmentCommand{}

	cmd := &cobra.Command{
		Use:   "containment <root>",
		Short: "Check containment between successive versions of every file",
		Long: `Containment runs the configured subset checker in both directions on every
pair of successive versions and appends one entry per file to the result
file. With --self-check every version is compared with itself instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "containment")
			if err != nil {
				return err
			}
			defer s.close()

			return cc.run(cmd, s, args[0])
		},
	}

	cc.flags.register(cmd, true)
	cmd.Flags().BoolVar(&cc.resume, "resume", false, "Skip files already present in the result file")
	cmd.Flags().StringVar(&cc.backend, "backend", "", "Checker back-end (default: containment.backend)")
	cmd.Flags().BoolVar(&cc.selfCheck, "self-check", false, "Compare every version with itself")
	cmd.Flags().StringVar(&cc.filterPath, "filter", "", "Version filter file; rejected versions are skipped")

	return cmd
}

func (cc *containmentCommand) run(cmd *cobra.Command, s *session, root string) error {
	s.overrideWorkers(cmd, cc.flags.workers)

	if cmd.Flags().Changed("backend") {
		s.cfg.Containment.Backend = cc.backend
	}

	if cmd.Flags().Changed("self-check") {
		s.cfg.Containment.SelfCheck = cc.selfCheck
	}

	checker, err := s.cfg.Containment.Checker()
	if err != nil {
		return err
	}

	l, err := s.loadLineage(root, cc.flags.lineageFile(s))
	if err != nil {
		return err
	}

	files, err := filteredFiles(l, cc.filterPath, s.logger)
	if err != nil {
		return err
	}

	name := "subschemas-" + s.cfg.Containment.Backend
	if s.cfg.Containment.SelfCheck {
		name += "-self"
	}

	p, err := persist.NewPersister[[]containment.Entry](s.resultPath(cc.flags.output, name))
	if err != nil {
		return err
	}

	a := &containment.Analyzer{
		Checker:         checker,
		Workers:         s.cfg.Workers,
		SelfCheck:       s.cfg.Containment.SelfCheck,
		Logger:          s.logger,
		DispatchOptions: s.dispatch,
	}

	err = a.Run(cmd.Context(), files, p, cc.resume)
	if err != nil {
		return err
	}

	entries, err := persist.LoadList(p)
	if err != nil {
		return err
	}

	return s.render(cmd, cc.flags.format, report.Symbols(entries))
}
