package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/config"
	"github.com/Sumatoshi-tech/schemaevo/pkg/snapshot"
)

// NewCloneCommand creates the clone command.
func NewCloneCommand(g *Globals) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "clone <url> <outdir>",
		Short: "Check out every first-parent commit of a repository",
		Long: `Clone creates <outdir>/bare-master as a bare clone of <url> and, for every
first-parent commit, a checkout at <outdir>/commits/{depth}#{revision}.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "clone")
			if err != nil {
				return err
			}
			defer s.close()

			s.overrideWorkers(cmd, workers)

			res, err := snapshot.Clone(cmd.Context(), args[0], args[1], snapshot.CloneOptions{
				Workers:         s.cfg.Workers,
				Logger:          s.logger,
				DispatchOptions: s.dispatch,
			})
			if err != nil {
				return fmt.Errorf("clone %s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cloned %d snapshots into %s\n", len(res.Snapshots), res.CommitsDir)

			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "Number of parallel checkouts (0 = use CPU count)")

	return cmd
}
