package report

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// FileSummary describes the history of one file.
type FileSummary struct {
	Path     string `json:"path"      yaml:"path"`
	Versions int    `json:"versions"  yaml:"versions"`
	MinDepth int    `json:"min_depth" yaml:"min_depth"`
	MaxDepth int    `json:"max_depth" yaml:"max_depth"`
}

// LineageStats summarizes a lineage.
type LineageStats struct {
	LiveFiles       int `json:"live_files"       yaml:"live_files"`
	DeletedFiles    int `json:"deleted_files"    yaml:"deleted_files"`
	LiveVersions    int `json:"live_versions"    yaml:"live_versions"`
	DeletedVersions int `json:"deleted_versions" yaml:"deleted_versions"`
	LivePairs       int `json:"live_pairs"       yaml:"live_pairs"`
	DeletedPairs    int `json:"deleted_pairs"    yaml:"deleted_pairs"`
	DistinctDepths  int `json:"distinct_depths"  yaml:"distinct_depths"`
	// HistoryLengths maps a history length to the number of live files with it.
	HistoryLengths map[int]int    `json:"history_lengths" yaml:"history_lengths"`
	ChangeKinds    map[string]int `json:"change_kinds"    yaml:"change_kinds"`
	Live           []FileSummary  `json:"live"            yaml:"live"`
	Deleted        []FileSummary  `json:"deleted"         yaml:"deleted"`
}

// Lineage computes the statistics of l.
func Lineage(l *lineage.Lineage) *LineageStats {
	s := &LineageStats{
		LiveFiles:      len(l.Live),
		DeletedFiles:   len(l.Deleted),
		HistoryLengths: map[int]int{},
		ChangeKinds:    map[string]int{},
	}

	depths := map[int]bool{}

	for _, f := range l.Live {
		s.LiveVersions += len(f.History)
		s.LivePairs += successivePairs(f)
		s.HistoryLengths[len(f.History)]++
		s.Live = append(s.Live, summarize(f))

		for _, v := range f.History {
			s.ChangeKinds[v.Kind.String()]++
		}
	}

	for _, f := range l.Deleted {
		s.DeletedVersions += len(f.History)
		s.DeletedPairs += successivePairs(f)
		s.Deleted = append(s.Deleted, summarize(f))
	}

	for _, group := range [][]*lineage.VersionedFile{l.Live, l.Deleted} {
		for _, f := range group {
			for _, v := range f.History {
				depths[v.Depth] = true
			}
		}
	}

	s.DistinctDepths = len(depths)

	return s
}

func successivePairs(f *lineage.VersionedFile) int {
	return max(len(f.History)-1, 0)
}

func summarize(f *lineage.VersionedFile) FileSummary {
	fs := FileSummary{Path: f.Path, Versions: len(f.History)}

	if len(f.History) > 0 {
		fs.MinDepth = f.History[0].Depth
		fs.MaxDepth = f.Latest().Depth
	}

	return fs
}

// Tables implements Tabular.
func (s *LineageStats) Tables() []table.Writer {
	totals := newTable("Lineage", table.Row{"", "Live", "Deleted"})
	totals.AppendRows([]table.Row{
		{"Files", count(s.LiveFiles), count(s.DeletedFiles)},
		{"Versions", count(s.LiveVersions), count(s.DeletedVersions)},
		{"Successive pairs", count(s.LivePairs), count(s.DeletedPairs)},
	})
	totals.AppendFooter(table.Row{"Distinct depths", count(s.DistinctDepths), ""})

	lengths := newTable("History lengths", table.Row{"Versions", "Files"})

	keys := make([]int, 0, len(s.HistoryLengths))
	for k := range s.HistoryLengths {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	for _, k := range keys {
		lengths.AppendRow(table.Row{k, count(s.HistoryLengths[k])})
	}

	kinds := newTable("Change kinds", table.Row{"Kind", "Versions"})
	for _, k := range sortedKeys(s.ChangeKinds) {
		kinds.AppendRow(table.Row{k, count(s.ChangeKinds[k])})
	}

	files := newTable("Files", table.Row{"Path", "Versions", "Min depth", "Max depth", "Deleted"})

	for _, f := range s.Live {
		files.AppendRow(table.Row{f.Path, f.Versions, f.MinDepth, f.MaxDepth, ""})
	}

	for _, f := range s.Deleted {
		files.AppendRow(table.Row{f.Path, f.Versions, f.MinDepth, f.MaxDepth, "yes"})
	}

	return []table.Writer{totals, lengths, kinds, files}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
