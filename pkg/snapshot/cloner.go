package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/schemaevo/pkg/dispatch"
	"github.com/Sumatoshi-tech/schemaevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// Layout names below the clone output directory.
const (
	BareMasterDir = "bare-master"
	CommitsDir    = "commits"
)

// ErrCommitsExist is returned when the output already holds snapshot checkouts.
var ErrCommitsExist = errors.New("commits directory already exists")

// CloneOptions configures Clone.
type CloneOptions struct {
	// Workers bounds concurrent checkouts. Zero means host parallelism.
	Workers int
	// Logger receives progress. Nil uses slog.Default().
	Logger *slog.Logger
	// DispatchOptions are passed to the checkout batch.
	DispatchOptions []dispatch.Option
}

// CloneResult describes the produced layout.
type CloneResult struct {
	BareMaster string
	CommitsDir string
	Snapshots  []lineage.Snapshot
}

// Clone creates outdir/bare-master as a bare clone of url and, for every
// first-parent commit, a checkout at outdir/commits/{depth}#{revision}.
func Clone(ctx context.Context, url, outdir string, opts CloneOptions) (*CloneResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	commitsDir := filepath.Join(outdir, CommitsDir)

	_, statErr := os.Stat(commitsDir)
	if statErr == nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitsExist, commitsDir)
	}

	if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", commitsDir, statErr)
	}

	bareDir := filepath.Join(outdir, BareMasterDir)

	logger.InfoContext(ctx, "cloning bare master", "url", url, "path", bareDir)

	bare, err := gitlib.Clone(url, bareDir, true)
	if err != nil {
		return nil, err
	}

	history, err := bare.FirstParentHistory()
	bare.Free()

	if err != nil {
		return nil, err
	}

	err = os.MkdirAll(commitsDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", commitsDir, err)
	}

	snapshots := make([]lineage.Snapshot, len(history))
	inputs := make([]checkoutJob, len(history))

	for i, hash := range history {
		dir := filepath.Join(commitsDir, lineage.DirName(i+1, hash.String()))
		snapshots[i] = lineage.Snapshot{Ref: dir, Depth: i + 1}
		inputs[i] = checkoutJob{source: bareDir, dir: dir, hash: hash}
	}

	logger.InfoContext(ctx, "checking out first-parent history", "commits", len(history))

	dispatchOpts := append([]dispatch.Option{dispatch.WithName("checkout"), dispatch.WithLogger(logger)},
		opts.DispatchOptions...)

	_, err = dispatch.Run(ctx, opts.Workers, checkout, inputs, nil, dispatchOpts...)
	if err != nil {
		return nil, err
	}

	return &CloneResult{BareMaster: bareDir, CommitsDir: commitsDir, Snapshots: snapshots}, nil
}

type checkoutJob struct {
	source string
	dir    string
	hash   gitlib.Hash
}

func checkout(_ context.Context, job checkoutJob) (struct{}, error) {
	repo, err := gitlib.Clone(job.source, job.dir, false)
	if err != nil {
		return struct{}{}, err
	}
	defer repo.Free()

	return struct{}{}, repo.CheckoutDetached(job.hash)
}
