package result

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
)

// FileKey identifies a logical file. A deleted file and a file added later
// at the same path share the path but not the marker they were added at.
type FileKey struct {
	Path    string
	AddedAt lineage.Marker
}

// KeyOf returns the key of f.
func KeyOf(f *lineage.VersionedFile) FileKey {
	return FileKey{Path: f.Path, AddedAt: f.AddedAt}
}

// Keys returns the set of files present in entries.
func Keys[T any](entries []Entry[T]) map[FileKey]bool {
	keys := make(map[FileKey]bool, len(entries))
	for _, e := range entries {
		if e.File != nil {
			keys[KeyOf(e.File)] = true
		}
	}

	return keys
}

// Runner appends the results of one analysis to a result list, file by file.
type Runner[T any] struct {
	// Name labels logs and errors, e.g. "drafts".
	Name string
	// Analyze computes the results of one file.
	Analyze func(ctx context.Context, file *lineage.VersionedFile) ([]T, error)
	// Logger receives progress. Nil uses slog.Default().
	Logger *slog.Logger
}

// Run analyzes files in order and appends one entry per file to the list
// stored by p. With resume, files already present in the list are skipped.
func (r *Runner[T]) Run(ctx context.Context, files []*lineage.VersionedFile, p *persist.Persister[[]Entry[T]], resume bool) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	done := map[FileKey]bool{}

	if resume {
		stored, err := persist.LoadList(p)
		if err != nil {
			return err
		}

		done = Keys(stored)
	}

	for i, file := range files {
		if done[KeyOf(file)] {
			logger.InfoContext(ctx, "skipping analyzed file", "analysis", r.Name, "path", file.Path,
				"added_at", file.AddedAt.String())

			continue
		}

		logger.InfoContext(ctx, "analyzing file", "analysis", r.Name, "path", file.Path,
			"versions", len(file.History), "index", i+1, "total", len(files))

		results, err := r.Analyze(ctx, file)
		if err != nil {
			return fmt.Errorf("%s of %s: %w", r.Name, file.Path, err)
		}

		err = persist.Append(p, Entry[T]{File: file, Results: results})
		if err != nil {
			return err
		}

		logger.DebugContext(ctx, "finished file", "analysis", r.Name, "path", file.Path, "results", len(results))
	}

	return nil
}
