package containment

import (
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
	"github.com/Sumatoshi-tech/schemaevo/pkg/result"
)

// Relink re-points the versions of every pair to the equal versions of idx.
// Pairs that reference a version missing from idx are left untouched and
// counted.
func Relink(entries []Entry, idx lineage.VersionIndex) int {
	missing := 0

	for _, e := range entries {
		for i := range e.Results {
			p := &e.Results[i]

			left, okLeft := idx.Relink(p.Left)
			right, okRight := idx.Relink(p.Right)

			if !okLeft || !okRight {
				missing++

				continue
			}

			p.Left, p.Right = left, right
		}
	}

	return missing
}

// PairsOf collects the pairs stored for file. Files are matched by path and
// the marker they were added at, so a deleted file never picks up the pairs
// of a later file at the same path.
func PairsOf(entries []Entry, file *lineage.VersionedFile) []Pair {
	key := result.KeyOf(file)

	var pairs []Pair

	for _, e := range entries {
		if e.File != nil && result.KeyOf(e.File) == key {
			pairs = append(pairs, e.Results...)
		}
	}

	return pairs
}
