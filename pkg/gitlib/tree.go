package gitlib

import (
	"fmt"
	"sort"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// Files returns the slash-separated paths of every blob in the tree, sorted.
func (t *Tree) Files() ([]string, error) {
	var paths []string

	err := t.tree.Walk(func(dir string, entry *git2go.TreeEntry) error {
		if entry.Type == git2go.ObjectBlob {
			paths = append(paths, dir+entry.Name)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree %s: %w", t.Hash(), err)
	}

	sort.Strings(paths)

	return paths, nil
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}
