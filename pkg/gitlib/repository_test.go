package gitlib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/schemaevo/pkg/gitlib"
)

func TestParseHash(t *testing.T) {
	t.Parallel()

	h, err := gitlib.ParseHash("0123456789abcdef0123456789abcdef01234567")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", h.String())
	assert.False(t, h.IsZero())

	for _, bad := range []string{"", "abc", "zz23456789abcdef0123456789abcdef01234567"} {
		_, err = gitlib.ParseHash(bad)
		require.ErrorIs(t, err, gitlib.ErrInvalidHash, bad)
	}

	assert.True(t, gitlib.HashFromOid(nil).IsZero())
}

func TestRepository_HeadAndParents(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a.json", `{}`)
	first := tr.commit("first")
	tr.writeFile("a.json", `{"type":"object"}`)
	second := tr.commit("second")

	repo := tr.open()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head)

	commit, err := repo.HeadCommit(context.Background())
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, "second", commit.Message())
	assert.Equal(t, "Test", commit.Author().Name)
	require.Equal(t, 1, commit.NumParents())

	parent, err := commit.ParentHash(0)
	require.NoError(t, err)
	assert.Equal(t, first, parent)

	_, err = commit.ParentHash(1)
	require.ErrorIs(t, err, gitlib.ErrNoParent)

	root, err := repo.LookupCommit(context.Background(), first)
	require.NoError(t, err)

	defer root.Free()

	assert.Equal(t, 0, root.NumParents())
}

func TestTree_Files(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("schemas/b.json", `{}`)
	tr.writeFile("a.json", `{}`)
	tr.writeFile("schemas/nested/c.json", `{}`)
	tr.commit("init")

	repo := tr.open()

	commit, err := repo.HeadCommit(context.Background())
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	files, err := tree.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "schemas/b.json", "schemas/nested/c.json"}, files)
}

func TestTreeDiff_ClassifiesChanges(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("keep.json", `{"a":1}`)
	tr.writeFile("gone.json", `{"b":2}`)
	tr.writeFile("move.json", `{"properties":{"name":{"type":"string"},"age":{"type":"integer"}}}`)
	first := tr.commit("first")

	tr.writeFile("keep.json", `{"a":2}`)
	tr.removeFile("gone.json")
	tr.moveFile("move.json", "moved/move.json")
	tr.writeFile("new.json", `{"c":3}`)
	second := tr.commit("second")

	repo := tr.open()
	oldTree := treeOf(t, repo, first)
	newTree := treeOf(t, repo, second)

	changes, err := gitlib.TreeDiff(repo, oldTree, newTree)
	require.NoError(t, err)

	got := make(map[string]string)
	for _, c := range changes {
		got[c.Action.String()+" "+c.From.Name] = c.To.Name
	}

	assert.Equal(t, map[string]string{
		"M keep.json": "keep.json",
		"D gone.json": "",
		"R move.json": "moved/move.json",
		"A ":          "new.json",
	}, got)

	same, err := gitlib.TreeDiff(repo, newTree, newTree)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestTreeDiff_SkipsGitlinks(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)

	first := tr.tree(map[string]string{"a.json": `{"a":1}`}, map[string]string{
		"vendor": "1111111111111111111111111111111111111111",
		"tools":  "3333333333333333333333333333333333333333",
	})
	second := tr.tree(map[string]string{"a.json": `{"a":2}`, "tools": `{}`}, map[string]string{
		"vendor": "2222222222222222222222222222222222222222",
		"ext":    "4444444444444444444444444444444444444444",
	})

	repo := tr.open()

	oldTree, err := repo.LookupTree(first)
	require.NoError(t, err)
	t.Cleanup(oldTree.Free)

	newTree, err := repo.LookupTree(second)
	require.NoError(t, err)
	t.Cleanup(newTree.Free)

	files, err := oldTree.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, files)

	changes, err := gitlib.TreeDiff(repo, oldTree, newTree)
	require.NoError(t, err)

	got := make(map[string]string)
	for _, c := range changes {
		got[c.Action.String()+" "+c.From.Name] = c.To.Name
	}

	assert.Equal(t, map[string]string{
		"M a.json": "a.json",
		"A ":       "tools",
	}, got)
}

func TestRepository_FirstParentHistory(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)

	var want []gitlib.Hash

	for _, content := range []string{"1", "2", "3"} {
		tr.writeFile("f.json", content)
		want = append(want, tr.commit("c"+content))
	}

	history, err := tr.open().FirstParentHistory()
	require.NoError(t, err)
	assert.Equal(t, want, history)
}

func TestClone_AndCheckoutDetached(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("f.json", "old")
	first := tr.commit("first")
	tr.writeFile("f.json", "new")
	tr.commit("second")

	out := t.TempDir()

	bare, err := gitlib.Clone(tr.path, filepath.Join(out, "bare"), true)
	require.NoError(t, err)

	defer bare.Free()

	history, err := bare.FirstParentHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)

	work, err := gitlib.Clone(tr.path, filepath.Join(out, "work"), false)
	require.NoError(t, err)

	defer work.Free()

	require.NoError(t, work.CheckoutDetached(first))

	data, err := os.ReadFile(filepath.Join(out, "work", "f.json"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	head, err := work.Head()
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func treeOf(t *testing.T, repo *gitlib.Repository, hash gitlib.Hash) *gitlib.Tree {
	t.Helper()

	commit, err := repo.LookupCommit(context.Background(), hash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	t.Cleanup(tree.Free)

	return tree
}
