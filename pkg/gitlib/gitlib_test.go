package gitlib_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/pkg/gitlib"
)

// testRepo wraps a scratch repository for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{t: t, path: dir, native: repo}
}

func (tr *testRepo) writeFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, filepath.FromSlash(name))

	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
}

func (tr *testRepo) removeFile(name string) {
	tr.t.Helper()

	require.NoError(tr.t, os.Remove(filepath.Join(tr.path, filepath.FromSlash(name))))
}

func (tr *testRepo) moveFile(from, to string) {
	tr.t.Helper()

	dst := filepath.Join(tr.path, filepath.FromSlash(to))

	require.NoError(tr.t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(tr.t, os.Rename(filepath.Join(tr.path, filepath.FromSlash(from)), dst))
}

// commit stages the whole working tree, deletions included, and commits it on HEAD.
func (tr *testRepo) commit(message string) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	require.NoError(tr.t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(tr.t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(tr.t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test", Email: "test@example.com", When: time.Unix(1700000000, 0)}

	var parents []*git2go.Commit

	head, headErr := tr.native.Head()
	if headErr == nil {
		parent, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		defer parent.Free()
		defer head.Free()

		parents = append(parents, parent)
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	return gitlib.HashFromOid(oid)
}

func (tr *testRepo) open() *gitlib.Repository {
	tr.t.Helper()

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(tr.t, err)

	tr.t.Cleanup(repo.Free)

	return repo
}

// tree writes a flat tree of blobs and gitlinks straight into the object
// database. Gitlinks map an entry name to the hex id of a foreign commit.
func (tr *testRepo) tree(blobs, gitlinks map[string]string) gitlib.Hash {
	tr.t.Helper()

	builder, err := tr.native.TreeBuilder()
	require.NoError(tr.t, err)

	defer builder.Free()

	for name, content := range blobs {
		oid, blobErr := tr.native.CreateBlobFromBuffer([]byte(content))
		require.NoError(tr.t, blobErr)
		require.NoError(tr.t, builder.Insert(name, oid, git2go.FilemodeBlob))
	}

	for name, hex := range gitlinks {
		oid, oidErr := git2go.NewOid(hex)
		require.NoError(tr.t, oidErr)
		require.NoError(tr.t, builder.Insert(name, oid, git2go.FilemodeCommit))
	}

	oid, err := builder.Write()
	require.NoError(tr.t, err)

	return gitlib.HashFromOid(oid)
}
