package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/containment"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

// ErrFileNotInLineage is returned by show for a path without history.
var ErrFileNotInLineage = errors.New("file not in lineage")

type showCommand struct {
	lineagePath string
	resultsPath string
}

// NewShowCommand creates the show command.
func NewShowCommand(g *Globals) *cobra.Command {
	sc := &showCommand{}

	cmd := &cobra.Command{
		Use:   "show <root> <path>",
		Short: "Print the history of one file as successive diffs",
		Long: `Show prints every version of the file at <path> with the line diff against
the previous version. Deleted files are found by their last path. With
--results the containment symbol of each successive pair is printed too.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "show")
			if err != nil {
				return err
			}
			defer s.close()

			return sc.run(cmd, s, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&sc.lineagePath, "lineage", "", "Lineage file (default: <output.dir>/lineage<ext>)")
	cmd.Flags().StringVar(&sc.resultsPath, "results", "", "Containment result file to annotate versions with")

	return cmd
}

func (sc *showCommand) run(cmd *cobra.Command, s *session, root, path string) error {
	l, err := s.loadLineage(root, s.resultPath(sc.lineagePath, lineageFileName))
	if err != nil {
		return err
	}

	file := findFile(l, path)
	if file == nil {
		return fmt.Errorf("%w: %s", ErrFileNotInLineage, path)
	}

	var pairs []containment.Pair

	if sc.resultsPath != "" {
		entries, err := loadContainment(sc.resultsPath)
		if err != nil {
			return err
		}

		missing := containment.Relink(entries, l.Index())
		if missing > 0 {
			s.logger.Warn("containment results reference versions missing from the lineage", "pairs", missing)
		}

		pairs = containment.PairsOf(entries, file)
	}

	return report.Show(cmd.OutOrStdout(), file, pairs)
}

func findFile(l *lineage.Lineage, path string) *lineage.VersionedFile {
	if f := l.File(path); f != nil {
		return f
	}

	for _, f := range l.Deleted {
		if f.Path == path {
			return f
		}
	}

	return nil
}
