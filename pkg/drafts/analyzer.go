package drafts

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

// ErrUnresolvedLocation is returned when a version to classify has no content location.
var ErrUnresolvedLocation = errors.New("file version has no resolved content location")

// Entry is one persisted file with the classifications of its versions.
type Entry = result.Entry[Classification]

// Analyzer classifies every version of versioned files.
type Analyzer struct {
	Classifier *Classifier
	Workers    int
	Logger     *slog.Logger
	// DispatchOptions are passed to every per-file batch.
	DispatchOptions []dispatch.Option
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}

	return a.Logger
}

// ContentVersions returns the versions of history that carry content.
func ContentVersions(history []*lineage.FileVersion) []*lineage.FileVersion {
	versions := make([]*lineage.FileVersion, 0, len(history))

	for _, v := range history {
		if v.Kind != lineage.Deleted {
			versions = append(versions, v)
		}
	}

	return versions
}

// AnalyzeFile classifies the content versions of file in one batch. The
// returned classifications reference the versions of file itself.
func (a *Analyzer) AnalyzeFile(ctx context.Context, file *lineage.VersionedFile) ([]Classification, error) {
	versions := ContentVersions(file.History)

	for _, v := range versions {
		if v.Location == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedLocation, file.Path)
		}
	}

	classify := func(_ context.Context, v *lineage.FileVersion) (Classification, error) {
		c := a.Classifier.ClassifyFile(v.Location)
		c.Version = v

		return c, nil
	}

	opts := append([]dispatch.Option{dispatch.WithName("drafts"), dispatch.WithLogger(a.logger())},
		a.DispatchOptions...)

	return dispatch.Run(ctx, a.Workers, dispatch.Detached(classify, cloneVersion), versions, reattachVersion, opts...)
}

// Run analyzes files in order and appends one entry per file to the result
// list of p. With resume, files already present in the list are skipped.
func (a *Analyzer) Run(ctx context.Context, files []*lineage.VersionedFile, p *persist.Persister[[]Entry], resume bool) error {
	r := &result.Runner[Classification]{Name: "drafts", Analyze: a.AnalyzeFile, Logger: a.logger()}

	return r.Run(ctx, files, p, resume)
}

func cloneVersion(v *lineage.FileVersion) *lineage.FileVersion {
	c := *v

	return &c
}

func reattachVersion(orig *lineage.FileVersion, out *Classification) {
	out.Version = orig
}

// Relink re-points every classification to the equal version of idx and
// returns how many classifications reference versions missing from idx.
func Relink(entries []Entry, idx lineage.VersionIndex) int {
	missing := 0

	for _, e := range entries {
		for i := range e.Results {
			v, ok := idx.Relink(e.Results[i].Version)
			if !ok {
				missing++

				continue
			}

			e.Results[i].Version = v
		}
	}

	return missing
}
