package report

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/schemaevo/pkg/filter"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// FilteredFile is a file that lost versions to a filter.
type FilteredFile struct {
	Path    string   `json:"path"    yaml:"path"`
	Before  int      `json:"before"  yaml:"before"`
	After   int      `json:"after"   yaml:"after"`
	Removed []string `json:"removed" yaml:"removed"`
}

// FilterStats summarizes what a version filter removes from a lineage.
type FilterStats struct {
	Name      string         `json:"name"      yaml:"name"`
	Versions  int            `json:"versions"  yaml:"versions"`
	Rejected  int            `json:"rejected"  yaml:"rejected"`
	Unmatched int            `json:"unmatched" yaml:"unmatched"`
	Files     []FilteredFile `json:"files"     yaml:"files"`
}

// Filter computes what f removes from l. Removed versions are listed by
// their snapshot marker.
func Filter(f *filter.VersionFilter, l *lineage.Lineage, unmatched int) *FilterStats {
	s := &FilterStats{Name: f.Name, Unmatched: unmatched}

	for _, group := range [][]*lineage.VersionedFile{l.Live, l.Deleted} {
		for _, file := range group {
			s.Versions += len(file.History)

			var removed []string

			for _, v := range file.History {
				if f.Rejects(v) {
					removed = append(removed, lineage.Marker{Depth: v.Depth, Revision: v.Revision}.String())
				}
			}

			if len(removed) == 0 {
				continue
			}

			s.Rejected += len(removed)
			s.Files = append(s.Files, FilteredFile{
				Path:    file.Path,
				Before:  len(file.History),
				After:   len(file.History) - len(removed),
				Removed: removed,
			})
		}
	}

	return s
}

// Tables implements Tabular.
func (s *FilterStats) Tables() []table.Writer {
	totals := newTable("Filter "+s.Name, table.Row{"", "Versions"})
	totals.AppendRows([]table.Row{
		{"Total", count(s.Versions)},
		{"Rejected", count(s.Rejected)},
		{"Kept", count(s.Versions - s.Rejected)},
		{"Rejected, not in lineage", count(s.Unmatched)},
	})

	files := newTable("Filtered files", table.Row{"Path", "Before", "After", "Removed at"})
	for _, f := range s.Files {
		for i, marker := range f.Removed {
			if i == 0 {
				files.AppendRow(table.Row{f.Path, f.Before, f.After, marker})
			} else {
				files.AppendRow(table.Row{"", "", "", marker})
			}
		}
	}

	return []table.Writer{totals, files}
}
