// Package lineage reconstructs the identity-tracked history of files from an
// ordered sequence of repository snapshots.
package lineage

import (
	"fmt"
	"path/filepath"
)

// ChangeKind is the kind of a single change record between two snapshots.
type ChangeKind string

// Change kinds, spelled the way git reports them.
const (
	Added    ChangeKind = "A"
	Deleted  ChangeKind = "D"
	Modified ChangeKind = "M"
	Renamed  ChangeKind = "R"
)

// String returns the human-readable name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	default:
		return "unknown(" + string(k) + ")"
	}
}

// Valid reports whether k is one of the known change kinds.
func (k ChangeKind) Valid() bool {
	switch k {
	case Added, Deleted, Modified, Renamed:
		return true
	default:
		return false
	}
}

// Marker addresses the snapshot at which something happened.
type Marker struct {
	Depth    int    `json:"depth"`
	Revision string `json:"revision"`
}

// String renders the marker as its snapshot directory name.
func (m Marker) String() string {
	return DirName(m.Depth, m.Revision)
}

// VersionKey is the equality key of a FileVersion.
type VersionKey struct {
	Revision string `json:"revision"`
	OldPath  string `json:"old_path,omitempty"`
	NewPath  string `json:"new_path,omitempty"`
}

// FileVersion is one historical change event of a VersionedFile.
// An empty OldPath or NewPath means the side is absent.
type FileVersion struct {
	Revision string     `json:"revision"`
	OldPath  string     `json:"old_path,omitempty"`
	NewPath  string     `json:"new_path,omitempty"`
	Kind     ChangeKind `json:"kind"`
	Depth    int        `json:"depth"`

	// Location is filled by ResolveLocation once the commit root is known.
	Location string `json:"-"`
}

// Key returns the equality key of the version.
func (v *FileVersion) Key() VersionKey {
	return VersionKey{Revision: v.Revision, OldPath: v.OldPath, NewPath: v.NewPath}
}

// Equal reports whether both versions describe the same change:
// same revision, same old path and same new path.
func (v *FileVersion) Equal(other *FileVersion) bool {
	if v == nil || other == nil {
		return v == other
	}

	return v.Key() == other.Key()
}

// Path returns the path that holds the content of this version:
// the new path, or the old path for deletions.
func (v *FileVersion) Path() string {
	if v.NewPath != "" {
		return v.NewPath
	}

	return v.OldPath
}

// ResolveLocation computes and stores the on-disk content location below root.
func (v *FileVersion) ResolveLocation(root string) string {
	v.Location = ContentLocation(root, v.Depth, v.Revision, v.Path())

	return v.Location
}

// String implements fmt.Stringer.
func (v *FileVersion) String() string {
	return fmt.Sprintf("old: %s | new: %s | kind: %s | depth: %d | revision: %s",
		v.OldPath, v.NewPath, v.Kind, v.Depth, v.Revision)
}

// VersionedFile is the logical identity of a file across renames.
type VersionedFile struct {
	Path      string         `json:"path"`
	AddedAt   Marker         `json:"added_at"`
	DeletedAt *Marker        `json:"deleted_at,omitempty"`
	History   []*FileVersion `json:"history"`
}

// IsDeleted reports whether the file was removed at some snapshot.
func (f *VersionedFile) IsDeleted() bool {
	return f.DeletedAt != nil
}

// Latest returns the most recent version, or nil for an empty history.
func (f *VersionedFile) Latest() *FileVersion {
	if len(f.History) == 0 {
		return nil
	}

	return f.History[len(f.History)-1]
}

// ResolveLocations resolves the content location of every version below root.
func (f *VersionedFile) ResolveLocations(root string) {
	for _, v := range f.History {
		v.ResolveLocation(root)
	}
}

func (f *VersionedFile) append(v *FileVersion) {
	f.History = append(f.History, v)
}

// ContentLocation returns {root}/{depth}#{revision}/{path}.
func ContentLocation(root string, depth int, revision, path string) string {
	return filepath.Join(root, DirName(depth, revision), filepath.FromSlash(path))
}
