// Package commands implements CLI command handlers for schemaevo.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/schemaevo/pkg/config"
	"github.com/Sumatoshi-tech/schemaevo/pkg/dispatch"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/observability"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/report"
	"github.com/Sumatoshi-tech/schemaevo/pkg/snapshot"
	"github.com/Sumatoshi-tech/schemaevo/pkg/version"
)

// ErrConflictingVerbosity is returned when both -v and -q are given.
var ErrConflictingVerbosity = errors.New("--verbose and --quiet are mutually exclusive")

// Globals holds the persistent root flags.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// session is the per-command runtime: configuration, telemetry and the
// dispatch options every batch runs with.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	dispatch  []dispatch.Option

	stopMetrics func(ctx context.Context) error
}

func openSession(g *Globals, mode string) (*session, error) {
	if g.Verbose && g.Quiet {
		return nil, ErrConflictingVerbosity
	}

	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	ocfg := observability.DefaultConfig()
	ocfg.ServiceVersion = version.Version
	ocfg.Environment = cfg.Observability.Environment
	ocfg.Mode = mode
	ocfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	ocfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	ocfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	ocfg.Prometheus = cfg.Observability.MetricsAddr != ""
	ocfg.LogLevel = observability.ParseLevel(cfg.Logging.Level)
	ocfg.LogJSON = cfg.Logging.JSON

	switch {
	case g.Verbose:
		ocfg.LogLevel = slog.LevelDebug
	case g.Quiet:
		ocfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(ocfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, providers: providers, logger: providers.Logger}

	metrics, err := observability.NewDispatchMetrics(providers.Meter)
	if err != nil {
		s.close()

		return nil, err
	}

	s.dispatch = []dispatch.Option{dispatch.WithTracer(providers.Tracer), dispatch.WithRecorder(metrics)}

	if cfg.Observability.MetricsAddr != "" {
		stop, serveErr := observability.ServeMetrics(cfg.Observability.MetricsAddr, providers.MetricsHandler, s.logger)
		if serveErr != nil {
			s.close()

			return nil, serveErr
		}

		s.stopMetrics = stop
	}

	return s, nil
}

func (s *session) close() {
	ctx := context.Background()

	if s.stopMetrics != nil {
		err := s.stopMetrics(ctx)
		if err != nil {
			s.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	err := s.providers.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
}

// overrideWorkers applies --workers when it was given explicitly.
func (s *session) overrideWorkers(cmd *cobra.Command, workers int) {
	if cmd.Flags().Changed("workers") {
		s.cfg.Workers = workers
	}
}

// render writes r in --format, or in the configured output format.
func (s *session) render(cmd *cobra.Command, format string, r report.Tabular) error {
	if !cmd.Flags().Changed("format") {
		format = s.cfg.Output.Format
	}

	return report.Render(cmd.OutOrStdout(), format, r)
}

// resultPath returns the path of a result file: explicit, or name with the
// configured extension below the output directory.
func (s *session) resultPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}

	return filepath.Join(s.cfg.Output.Dir, name+s.cfg.Output.Extension())
}

func (s *session) commitsDir(root string) string {
	return filepath.Join(root, s.cfg.Lineage.CommitsDir)
}

func (s *session) bareMaster(root string) string {
	return filepath.Join(root, snapshot.BareMasterDir)
}

// loadLineage reads a lineage file and resolves content locations below the
// commit root of root.
func (s *session) loadLineage(root, path string) (*lineage.Lineage, error) {
	p, err := persist.NewPersister[lineage.Lineage](path)
	if err != nil {
		return nil, err
	}

	l, err := p.Load()
	if err != nil {
		return nil, fmt.Errorf("load lineage: %w", err)
	}

	l.ResolveLocations(s.commitsDir(root))

	return l, nil
}

func allFiles(l *lineage.Lineage) []*lineage.VersionedFile {
	files := make([]*lineage.VersionedFile, 0, len(l.Live)+len(l.Deleted))
	files = append(files, l.Live...)

	return append(files, l.Deleted...)
}

// analysisFlags are shared by the commands that read a lineage file.
type analysisFlags struct {
	lineagePath string
	output      string
	format      string
	workers     int
}

func (f *analysisFlags) register(cmd *cobra.Command, withOutput bool) {
	cmd.Flags().StringVar(&f.lineagePath, "lineage", "", "Lineage file (default: <output.dir>/lineage<ext>)")
	cmd.Flags().StringVar(&f.format, "format", config.DefaultOutputFormat, "Output format: table, json, yaml")
	cmd.Flags().IntVar(&f.workers, "workers", config.DefaultWorkers, "Number of parallel workers (0 = use CPU count)")

	if withOutput {
		cmd.Flags().StringVarP(&f.output, "output", "o", "", "Result file (extension selects the codec)")
	}
}

func (f *analysisFlags) lineageFile(s *session) string {
	return s.resultPath(f.lineagePath, lineageFileName)
}

const lineageFileName = "lineage"
