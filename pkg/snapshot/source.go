package snapshot

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/schemaevo/pkg/gitlib"
	"github.com/Sumatoshi-tech/schemaevo/pkg/lineage"
)

// GitSource implements lineage.Source over snapshot checkouts. Each snapshot
// Ref is the path of a repository whose HEAD is the snapshot's commit.
type GitSource struct{}

// NewGitSource creates a source reading snapshot repositories with libgit2.
func NewGitSource() *GitSource {
	return &GitSource{}
}

var _ lineage.Source = (*GitSource)(nil)

// ListTrackedFiles returns every blob path of the snapshot's HEAD tree.
func (s *GitSource) ListTrackedFiles(ctx context.Context, snap lineage.Snapshot) ([]string, error) {
	var files []string

	err := withHead(ctx, snap.Ref, func(_ *gitlib.Repository, head *gitlib.Commit) error {
		tree, err := head.Tree()
		if err != nil {
			return err
		}
		defer tree.Free()

		files, err = tree.Files()

		return err
	})

	return files, err
}

// RevisionOf returns the hex id of the snapshot's HEAD commit.
func (s *GitSource) RevisionOf(_ context.Context, snap lineage.Snapshot) (string, error) {
	repo, err := gitlib.OpenRepository(snap.Ref)
	if err != nil {
		return "", err
	}
	defer repo.Free()

	head, err := repo.Head()
	if err != nil {
		return "", err
	}

	return head.String(), nil
}

// PreviousRevisionOf returns the first parent of the snapshot's HEAD commit,
// or an empty string for a root commit.
func (s *GitSource) PreviousRevisionOf(ctx context.Context, snap lineage.Snapshot) (string, error) {
	var parent string

	err := withHead(ctx, snap.Ref, func(_ *gitlib.Repository, head *gitlib.Commit) error {
		if head.NumParents() == 0 {
			return nil
		}

		hash, err := head.ParentHash(0)
		if err != nil {
			return err
		}

		parent = hash.String()

		return nil
	})

	return parent, err
}

// Diff computes the rename-aware changes from prev's commit to curr's commit.
// Both commits are read from curr's repository, which contains prev as an ancestor.
func (s *GitSource) Diff(ctx context.Context, prev, curr lineage.Snapshot) ([]lineage.Change, error) {
	prevRevision, err := s.RevisionOf(ctx, prev)
	if err != nil {
		return nil, err
	}

	prevHash, err := gitlib.ParseHash(prevRevision)
	if err != nil {
		return nil, err
	}

	var changes []lineage.Change

	err = withHead(ctx, curr.Ref, func(repo *gitlib.Repository, head *gitlib.Commit) error {
		before, lookupErr := repo.LookupCommit(ctx, prevHash)
		if lookupErr != nil {
			return lookupErr
		}
		defer before.Free()

		oldTree, treeErr := before.Tree()
		if treeErr != nil {
			return treeErr
		}
		defer oldTree.Free()

		newTree, treeErr := head.Tree()
		if treeErr != nil {
			return treeErr
		}
		defer newTree.Free()

		diff, diffErr := gitlib.TreeDiff(repo, oldTree, newTree)
		if diffErr != nil {
			return diffErr
		}

		changes = convertChanges(diff, head.Hash().String())

		return nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

func convertChanges(diff gitlib.Changes, revision string) []lineage.Change {
	changes := make([]lineage.Change, 0, len(diff))

	for _, c := range diff {
		change := lineage.Change{
			OldPath:  c.From.Name,
			NewPath:  c.To.Name,
			Revision: revision,
		}

		switch c.Action {
		case gitlib.Insert:
			change.Kind = lineage.Added
		case gitlib.Delete:
			change.Kind = lineage.Deleted
		case gitlib.Modify:
			change.Kind = lineage.Modified
		case gitlib.Rename:
			change.Kind = lineage.Renamed
		}

		changes = append(changes, change)
	}

	return changes
}

// FirstParentSequence returns the first-parent history of the repository at
// masterPath, oldest first, as hex revision ids.
func FirstParentSequence(masterPath string) ([]string, error) {
	repo, err := gitlib.OpenRepository(masterPath)
	if err != nil {
		return nil, err
	}
	defer repo.Free()

	history, err := repo.FirstParentHistory()
	if err != nil {
		return nil, fmt.Errorf("first-parent history of %s: %w", masterPath, err)
	}

	revisions := make([]string, len(history))
	for i, h := range history {
		revisions[i] = h.String()
	}

	return revisions, nil
}

func withHead(ctx context.Context, path string, fn func(*gitlib.Repository, *gitlib.Commit) error) error {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return err
	}
	defer repo.Free()

	head, err := repo.HeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer head.Free()

	err = fn(repo, head)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}
