package filter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/schemaevo/pkg/dispatch"
	"github.com/Sumatoshi-tech/schemaevo/pkg/drafts"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/persist"
)

// VersionFilter is the persisted outcome of a filter: the versions it rejected.
type VersionFilter struct {
	Name    string               `json:"name"`
	Invalid []lineage.VersionKey `json:"invalid"`

	set map[lineage.VersionKey]bool
}

// NewVersionFilter creates a filter rejecting the given versions.
func NewVersionFilter(name string, invalid []lineage.VersionKey) *VersionFilter {
	return &VersionFilter{Name: name, Invalid: invalid}
}

func (f *VersionFilter) invalid() map[lineage.VersionKey]bool {
	if f.set == nil {
		f.set = make(map[lineage.VersionKey]bool, len(f.Invalid))
		for _, k := range f.Invalid {
			f.set[k] = true
		}
	}

	return f.set
}

// Rejects reports whether v is one of the rejected versions.
func (f *VersionFilter) Rejects(v *lineage.FileVersion) bool {
	return f.invalid()[v.Key()]
}

// Apply returns the versions of history the filter does not reject.
func (f *VersionFilter) Apply(history []*lineage.FileVersion) []*lineage.FileVersion {
	kept := make([]*lineage.FileVersion, 0, len(history))

	for _, v := range history {
		if !f.Rejects(v) {
			kept = append(kept, v)
		}
	}

	return kept
}

// ApplyFile returns a copy of file whose history holds only accepted versions.
func (f *VersionFilter) ApplyFile(file *lineage.VersionedFile) *lineage.VersionedFile {
	out := *file
	out.History = f.Apply(file.History)

	return &out
}

// Unmatched returns the rejected versions that do not occur in l. Each one is
// logged as a warning; they usually mean the filter belongs to another lineage.
func (f *VersionFilter) Unmatched(l *lineage.Lineage, logger *slog.Logger) []lineage.VersionKey {
	if logger == nil {
		logger = slog.Default()
	}

	idx := l.Index()

	var unmatched []lineage.VersionKey

	for _, k := range f.Invalid {
		if _, ok := idx[k]; !ok {
			logger.Warn("filtered version not in lineage", "filter", f.Name,
				"revision", k.Revision, "old_path", k.OldPath, "new_path", k.NewPath)

			unmatched = append(unmatched, k)
		}
	}

	return unmatched
}

// Save writes the filter to path; the codec follows the extension.
func (f *VersionFilter) Save(path string) error {
	p, err := persist.NewPersister[VersionFilter](path)
	if err != nil {
		return err
	}

	return p.Save(f)
}

// Load reads a filter written by Save.
func Load(path string) (*VersionFilter, error) {
	p, err := persist.NewPersister[VersionFilter](path)
	if err != nil {
		return nil, err
	}

	return p.Load()
}

// Builder evaluates a predicate over every content version of a lineage.
type Builder struct {
	Name      string
	Predicate Predicate
	Workers   int
	Logger    *slog.Logger
	// DispatchOptions are passed to every per-file batch.
	DispatchOptions []dispatch.Option
}

type decision struct {
	Version *lineage.FileVersion
	Pass    bool
}

// Build evaluates the predicate on every version of files that carries
// content. Versions that cannot be loaded are rejected.
func (b *Builder) Build(ctx context.Context, files []*lineage.VersionedFile) (*VersionFilter, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	evaluate := func(_ context.Context, v *lineage.FileVersion) (decision, error) {
		doc, err := drafts.LoadFile(v.Location)
		if err != nil {
			logger.Debug("rejecting unloadable version", "location", v.Location, "error", err)

			return decision{Version: v}, nil
		}

		return decision{Version: v, Pass: b.Predicate(doc.Value)}, nil
	}

	reattach := func(orig *lineage.FileVersion, out *decision) {
		out.Version = orig
	}

	clone := func(v *lineage.FileVersion) *lineage.FileVersion {
		c := *v

		return &c
	}

	opts := append([]dispatch.Option{dispatch.WithName("filter"), dispatch.WithLogger(logger)},
		b.DispatchOptions...)

	out := NewVersionFilter(b.Name, nil)

	for _, file := range files {
		versions := drafts.ContentVersions(file.History)

		for _, v := range versions {
			if v.Location == "" {
				return nil, fmt.Errorf("%w: %s", drafts.ErrUnresolvedLocation, file.Path)
			}
		}

		decisions, err := dispatch.Run(ctx, b.Workers, dispatch.Detached(evaluate, clone), versions, reattach, opts...)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", file.Path, err)
		}

		rejected := 0

		for _, d := range decisions {
			if !d.Pass {
				out.Invalid = append(out.Invalid, d.Version.Key())
				rejected++
			}
		}

		logger.InfoContext(ctx, "filtered file", "path", file.Path, "versions", len(versions), "rejected", rejected)
	}

	return out, nil
}
