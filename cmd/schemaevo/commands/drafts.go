package commands

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/cache"
	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
)

const draftsFileName = "drafts"

type draftsCommand struct {
	flags      analysisFlags
	resume     bool
	draftNames []string
	filterPath string
	cacheSize  string
}

// NewDraftsCommand creates the drafts command.
func NewDraftsCommand(g *Globals) *cobra.Command {
	dc := &draftsCommand{}

	cmd := &cobra.Command{
		Use:   "drafts <root>",
		Short: "Classify every file version by JSON Schema draft",
		Long: `Drafts validates every content version of the lineage against the
meta-schema of each draft, once as loaded and once with local $ref pointers
dereferenced, and appends one entry per file to the result file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g, "drafts")
			if err != nil {
				return err
			}
			defer s.close()

			return dc.run(cmd, s, args[0])
		},
	}

	dc.flags.register(cmd, true)
	cmd.Flags().BoolVar(&dc.resume, "resume", false, "Skip files already present in the result file")
	cmd.Flags().StringSliceVar(&dc.draftNames, "drafts", nil, "Drafts to check (default: all)")
	cmd.Flags().StringVar(&dc.filterPath, "filter", "", "Version filter file; rejected versions are skipped")
	cmd.Flags().StringVar(&dc.cacheSize, "cache-size", "64MB",
		"Memory for reusing classifications of identical content (e.g. '256MB'; 0 = disabled)")

	return cmd
}

func (dc *draftsCommand) run(cmd *cobra.Command, s *session, root string) error {
	s.overrideWorkers(cmd, dc.flags.workers)

	selected := make([]drafts.Draft, 0, len(dc.draftNames))

	for _, name := range dc.draftNames {
		d, err := drafts.ParseDraft(name)
		if err != nil {
			return err
		}

		selected = append(selected, d)
	}

	classifier, err := drafts.NewClassifier(selected...)
	if err != nil {
		return err
	}

	cacheBytes, err := humanize.ParseBytes(dc.cacheSize)
	if err != nil {
		return fmt.Errorf("invalid --cache-size: %w", err)
	}

	var lru *cache.LRU[uint64, drafts.Classification]
	if cacheBytes > 0 {
		lru = cache.New[uint64, drafts.Classification](int64(cacheBytes))
		classifier.WithCache(lru)
	}

	l, err := s.loadLineage(root, dc.flags.lineageFile(s))
	if err != nil {
		return err
	}

	files, err := filteredFiles(l, dc.filterPath, s.logger)
	if err != nil {
		return err
	}

	p, err := persist.NewPersister[[]drafts.Entry](s.resultPath(dc.flags.output, draftsFileName))
	if err != nil {
		return err
	}

	a := &drafts.Analyzer{
		Classifier:      classifier,
		Workers:         s.cfg.Workers,
		Logger:          s.logger,
		DispatchOptions: s.dispatch,
	}

	err = a.Run(cmd.Context(), files, p, dc.resume)
	if err != nil {
		return err
	}

	if lru != nil {
		stats := lru.Stats()
		s.logger.Info("classification cache", "hits", stats.Hits, "misses", stats.Misses,
			"hit_rate", fmt.Sprintf("%.2f", stats.HitRate()), "size", humanize.IBytes(uint64(stats.CurrentSize)))
	}

	entries, err := persist.LoadList(p)
	if err != nil {
		return err
	}

	return s.render(cmd, dc.flags.format, report.Drafts(entries))
}

// filteredFiles returns every file of l; with a filter file, the histories
// keep only the versions the filter accepts.
func filteredFiles(l *lineage.Lineage, filterPath string, logger *slog.Logger) ([]*lineage.VersionedFile, error) {
	files := allFiles(l)
	if filterPath == "" {
		return files, nil
	}

	vf, err := filter.Load(filterPath)
	if err != nil {
		return nil, fmt.Errorf("load filter: %w", err)
	}

	vf.Unmatched(l, logger)

	for i, f := range files {
		files[i] = vf.ApplyFile(f)
	}

	logger.Info("applied version filter", "filter", vf.Name, "rejected", len(vf.Invalid))

	return files, nil
}
