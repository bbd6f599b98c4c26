package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction represents the type of change in a diff.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified in place.
	Modify
	// Rename indicates a file was moved, possibly with content changes.
	Rename
)

// String returns a one-letter name of the action.
func (a ChangeAction) String() string {
	switch a {
	case Insert:
		return "A"
	case Delete:
		return "D"
	case Modify:
		return "M"
	case Rename:
		return "R"
	default:
		return fmt.Sprintf("ChangeAction(%d)", int(a))
	}
}

// Change represents a single file change between two trees.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// ChangeEntry represents one side of a change (old or new file).
type ChangeEntry struct {
	Name string
	Hash Hash
	Size int64
}

// Changes is a collection of Change objects.
type Changes []*Change

// TreeDiff computes the changes between two trees with rename detection.
// Copies are reported as insertions and type changes as modifications.
// Submodule entries are left out.
// Identical trees yield no changes without running a diff.
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return Changes{}, nil
	}

	var oldNative, newNative *git2go.Tree
	if oldTree != nil {
		oldNative = oldTree.tree
	}

	if newTree != nil {
		newNative = newTree.tree
	}

	diff, err := repo.repo.DiffTreeToTree(oldNative, newNative, nil)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer diff.Free()

	findOpts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		return nil, fmt.Errorf("diff find options: %w", err)
	}

	findOpts.Flags = git2go.DiffFindRenames

	err = diff.FindSimilar(&findOpts)
	if err != nil {
		return nil, fmt.Errorf("detect renames: %w", err)
	}

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	changes := make(Changes, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		change, ok := convertDelta(delta)
		if ok {
			changes = append(changes, change)
		}
	}

	return changes, nil
}

func convertDelta(delta git2go.DiffDelta) (*Change, bool) {
	from := ChangeEntry{
		Name: delta.OldFile.Path,
		Hash: HashFromOid(delta.OldFile.Oid),
		Size: int64(delta.OldFile.Size),
	}
	to := ChangeEntry{
		Name: delta.NewFile.Path,
		Hash: HashFromOid(delta.NewFile.Oid),
		Size: int64(delta.NewFile.Size),
	}

	// Gitlinks are not files: Tree.Files never lists them, so a side that is a
	// submodule counts as absent.
	oldLink := delta.OldFile.Mode == uint16(git2go.FilemodeCommit)
	newLink := delta.NewFile.Mode == uint16(git2go.FilemodeCommit)

	switch {
	case oldLink && newLink:
		return nil, false
	case oldLink:
		if delta.Status == git2go.DeltaDeleted {
			return nil, false
		}

		return &Change{Action: Insert, To: to}, true
	case newLink:
		if delta.Status == git2go.DeltaAdded || delta.Status == git2go.DeltaCopied {
			return nil, false
		}

		return &Change{Action: Delete, From: from}, true
	}

	switch delta.Status {
	case git2go.DeltaAdded, git2go.DeltaCopied:
		return &Change{Action: Insert, To: to}, true
	case git2go.DeltaDeleted:
		return &Change{Action: Delete, From: from}, true
	case git2go.DeltaModified, git2go.DeltaTypeChange:
		return &Change{Action: Modify, From: from, To: to}, true
	case git2go.DeltaRenamed:
		return &Change{Action: Rename, From: from, To: to}, true
	default:
		return nil, false
	}
}
