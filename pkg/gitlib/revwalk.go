package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// PushHead adds HEAD to start walking from.
func (w *RevWalk) PushHead() error {
	head, err := w.repo.Head()
	if err != nil {
		return err
	}

	return w.Push(head)
}

// FirstParent restricts the walk to first parents, newest first.
func (w *RevWalk) FirstParent() {
	w.walk.Sorting(git2go.SortTopological)
	w.walk.SimplifyFirstParent()
}

// Each calls cb with every commit hash of the walk.
func (w *RevWalk) Each(cb func(Hash) error) error {
	var cbErr error

	err := w.walk.Iterate(func(commit *git2go.Commit) bool {
		cbErr = cb(HashFromOid(commit.Id()))
		commit.Free()

		return cbErr == nil
	})
	if cbErr != nil {
		return cbErr
	}

	if err != nil {
		return fmt.Errorf("revwalk iterate: %w", err)
	}

	return nil
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
