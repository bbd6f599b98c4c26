package containment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/schemaevo/pkg/dispatch"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
	"github.com/Sumatoshi-tech/schemaevo/pkg/result"
)

// ErrUnresolvedLocation is returned when a version to compare has no content location.
var ErrUnresolvedLocation = errors.New("file version has no resolved content location")

type versionPair = dispatch.Pair[*lineage.FileVersion, *lineage.FileVersion]

// SelectPairs returns the version pairs to compare for one history: each
// version with its successor, or with selfCheck each version with itself.
// Deleted versions carry no content and are skipped.
func SelectPairs(history []*lineage.FileVersion, selfCheck bool) []versionPair {
	versions := make([]*lineage.FileVersion, 0, len(history))

	for _, v := range history {
		if v.Kind != lineage.Deleted {
			versions = append(versions, v)
		}
	}

	var pairs []versionPair

	for i, v := range versions {
		switch {
		case selfCheck:
			pairs = append(pairs, dispatch.MakePair(v, v))
		case i+1 < len(versions):
			pairs = append(pairs, dispatch.MakePair(v, versions[i+1]))
		}
	}

	return pairs
}

// Analyzer runs containment checks over versioned files.
type Analyzer struct {
	Checker   Checker
	Workers   int
	SelfCheck bool
	Logger    *slog.Logger
	// DispatchOptions are passed to every per-file batch.
	DispatchOptions []dispatch.Option
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}

	return a.Logger
}

// AnalyzeFile checks every selected pair of file's history in one batch. The
// returned pairs reference the versions of file itself.
func (a *Analyzer) AnalyzeFile(ctx context.Context, file *lineage.VersionedFile) ([]Pair, error) {
	pairs := SelectPairs(file.History, a.SelfCheck)

	for _, p := range pairs {
		if p.First.Location == "" || p.Second.Location == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedLocation, file.Path)
		}
	}

	check := func(ctx context.Context, p versionPair) (Pair, error) {
		return Pair{
			Left:        p.First,
			Right:       p.Second,
			LeftInRight: a.Checker.CheckSubset(ctx, p.First.Location, p.Second.Location),
			RightInLeft: a.Checker.CheckSubset(ctx, p.Second.Location, p.First.Location),
		}, nil
	}

	opts := append([]dispatch.Option{dispatch.WithName("containment"), dispatch.WithLogger(a.logger())},
		a.DispatchOptions...)

	return dispatch.Run(ctx, a.Workers, dispatch.Detached(check, clonePair), pairs, reattachPair, opts...)
}

// Run analyzes files in order and appends one entry per file to the result
// list of p. With resume, files already present in the list are skipped.
func (a *Analyzer) Run(ctx context.Context, files []*lineage.VersionedFile, p *persist.Persister[[]Entry], resume bool) error {
	r := &result.Runner[Pair]{Name: "containment", Analyze: a.AnalyzeFile, Logger: a.logger()}

	return r.Run(ctx, files, p, resume)
}

func clonePair(p versionPair) versionPair {
	first := *p.First
	second := *p.Second

	return dispatch.MakePair(&first, &second)
}

func reattachPair(orig versionPair, out *Pair) {
	out.Left = orig.First
	out.Right = orig.Second
}
