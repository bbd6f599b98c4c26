package lineage

import (
	"path"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"
)

// NewPathFilter returns a predicate keeping paths that start with one of the
// prefixes and, when languages is not empty, whose detected language is listed.
func NewPathFilter(prefixes, languages []string) func(string) bool {
	wanted := make(map[string]bool, len(languages))
	for _, lang := range languages {
		wanted[strings.ToLower(lang)] = true
	}

	return func(p string) bool {
		if !hasAnyPrefix(p, prefixes) {
			return false
		}

		if len(wanted) == 0 {
			return true
		}

		return wanted[strings.ToLower(DetectLanguage(p))]
	}
}

// DetectLanguage guesses the language of a path from its name alone.
func DetectLanguage(p string) string {
	return enry.GetLanguage(path.Base(p), nil)
}

func hasAnyPrefix(p string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}

	return false
}

// SortByHistory orders files by descending history length, then by path.
func SortByHistory(files []*VersionedFile) {
	sort.SliceStable(files, func(i, j int) bool {
		if len(files[i].History) != len(files[j].History) {
			return len(files[i].History) > len(files[j].History)
		}

		return files[i].Path < files[j].Path
	})
}

// VersionIndex maps equality keys to the versions of a lineage.
type VersionIndex map[VersionKey]*FileVersion

// Index builds the version index of every live and deleted file.
func (l *Lineage) Index() VersionIndex {
	idx := make(VersionIndex)

	for _, group := range [][]*VersionedFile{l.Live, l.Deleted} {
		for _, f := range group {
			for _, v := range f.History {
				idx[v.Key()] = v
			}
		}
	}

	return idx
}

// Relink returns the version of the index equal to v. It is used to restore
// identities after v crossed a serialization boundary.
func (idx VersionIndex) Relink(v *FileVersion) (*FileVersion, bool) {
	if v == nil {
		return nil, false
	}

	original, ok := idx[v.Key()]

	return original, ok
}
