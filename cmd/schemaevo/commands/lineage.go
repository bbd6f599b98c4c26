package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
	"github.com/Sumatoshi-tech/schemaevo/pkg/snapshot"
)

type lineageCommand struct {
	flags          analysisFlags
	trackPaths     []string
	languages      []string
	validateMaster bool
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand(g *Globals) *cobra.Command {
	lc := &lineageCommand{}

	cmd := &cobra.Command{
		Use:   "lineage <root>",
		Short: "Rebuild file identities across the snapshot checkouts",
		Long: `Lineage replays the diffs between consecutive snapshots below
<root>/<lineage.commits_dir> and writes the live and deleted files with their
version histories to the lineage file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "lineage")
			if err != nil {
				return err
			}
			defer s.close()

			return lc.run(cmd, s, args[0])
		},
	}

	cmd.Flags().StringVarP(&lc.flags.output, "output", "o", "", "Lineage file (default: <output.dir>/lineage<ext>)")
	cmd.Flags().StringVar(&lc.flags.format, "format", "table", "Output format: table, json, yaml")
	cmd.Flags().StringSliceVar(&lc.trackPaths, "track", nil, "Path prefixes to track (default: lineage.track_paths)")
	cmd.Flags().StringSliceVar(&lc.languages, "languages", nil, "Languages to keep, by name as detected by enry (default: lineage.languages, empty keeps all)")
	cmd.Flags().BoolVar(&lc.validateMaster, "validate-master", true, "Cross-check snapshot revisions against bare-master")

	return cmd
}

func (lc *lineageCommand) run(cmd *cobra.Command, s *session, root string) error {
	ctx := cmd.Context()

	if cmd.Flags().Changed("track") {
		s.cfg.Lineage.TrackPaths = lc.trackPaths
	}

	if cmd.Flags().Changed("languages") {
		s.cfg.Lineage.Languages = lc.languages
	}

	if cmd.Flags().Changed("validate-master") {
		s.cfg.Lineage.ValidateMaster = lc.validateMaster
	}

	snapshots, err := snapshot.Discover(s.commitsDir(root))
	if err != nil {
		return err
	}

	opts := lineage.Options{
		TrackPaths: s.cfg.Lineage.TrackPaths,
		Languages:  s.cfg.Lineage.Languages,
		Logger:     s.logger,
	}

	if s.cfg.Lineage.ValidateMaster {
		opts.Authoritative, err = snapshot.FirstParentSequence(s.bareMaster(root))
		if err != nil {
			return fmt.Errorf("read authoritative sequence: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "building lineage", "snapshots", len(snapshots), "validate_master", s.cfg.Lineage.ValidateMaster)

	l, err := lineage.NewBuilder(snapshot.NewGitSource(), opts).Build(ctx, snapshots)
	if err != nil {
		return err
	}

	path := s.resultPath(lc.flags.output, lineageFileName)

	p, err := persist.NewPersister[lineage.Lineage](path)
	if err != nil {
		return err
	}

	err = p.Save(l)
	if err != nil {
		return fmt.Errorf("save lineage: %w", err)
	}

	s.logger.InfoContext(ctx, "lineage written", "path", path, "live", len(l.Live), "deleted", len(l.Deleted))

	return s.render(cmd, lc.flags.format, report.Lineage(l))
}
