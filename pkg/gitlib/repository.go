package gitlib

import (
	"context"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the commit HEAD points at.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	resolved, err := ref.Resolve()
	if err != nil {
		return Hash{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	defer resolved.Free()

	return HashFromOid(resolved.Target()), nil
}

// HeadCommit returns the commit HEAD points at.
func (r *Repository) HeadCommit(ctx context.Context) (*Commit, error) {
	head, err := r.Head()
	if err != nil {
		return nil, err
	}

	return r.LookupCommit(ctx, head)
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree %s: %w", hash, err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// FirstParentHistory returns the first-parent chain ending at HEAD, oldest first.
func (r *Repository) FirstParentHistory() ([]Hash, error) {
	walk, err := r.Walk()
	if err != nil {
		return nil, err
	}
	defer walk.Free()

	err = walk.PushHead()
	if err != nil {
		return nil, err
	}

	walk.FirstParent()

	var hashes []Hash

	err = walk.Each(func(h Hash) error {
		hashes = append(hashes, h)

		return nil
	})
	if err != nil {
		return nil, err
	}

	ReverseHashes(hashes)

	return hashes, nil
}

// Walk creates a new revision walker.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// CheckoutDetached points HEAD at hash and forces the working tree to match it.
func (r *Repository) CheckoutDetached(hash Hash) error {
	err := r.repo.SetHeadDetached(hash.ToOid())
	if err != nil {
		return fmt.Errorf("set detached HEAD %s: %w", hash, err)
	}

	err = r.repo.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}

	return nil
}

// Native returns the underlying libgit2 repository for advanced operations.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

// Clone clones url into path. A bare clone has no working tree; a non-bare
// clone is created without checkout so the caller can pick the revision.
func Clone(url, path string, bare bool) (*Repository, error) {
	opts := &git2go.CloneOptions{Bare: bare}
	if !bare {
		opts.CheckoutOptions = git2go.CheckoutOptions{Strategy: git2go.CheckoutNone}
	}

	repo, err := git2go.Clone(url, path, opts)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// ReverseHashes reverses hashes in place.
func ReverseHashes(hashes []Hash) {
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
	}
}
