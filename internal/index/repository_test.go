package index_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/index"
	"cratewatch/internal/testsupport"
)

func cloneFixture(t *testing.T, upstream *testsupport.IndexUpstream) (*index.Repository, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "checkout")
	upstream.Clone(dir)
	repo, err := index.Open(context.Background(), index.Options{Path: dir})
	require.NoError(t, err)
	return repo, dir
}

func TestOpenMissingRepository(t *testing.T) {
	_, err := index.Open(context.Background(), index.Options{Path: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrRepository)
}

func TestHeadTreeOnEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	repo, err := index.Open(context.Background(), index.Options{Path: dir})
	require.NoError(t, err)

	_, err = repo.HeadTree(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrHeadUnresolved)
	assert.ErrorIs(t, err, index.ErrRepository)
}

func TestFetchResetAndDiffYieldsAddedLines(t *testing.T) {
	ctx := context.Background()
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("se/rd/serde", `{"name":"serde","vers":"1.0.0"}`)

	repo, _ := cloneFixture(t, upstream)
	oldTree, err := repo.HeadTree(ctx)
	require.NoError(t, err)

	upstream.AppendLines("se/rd/serde", `{"name":"serde","vers":"1.0.1"}`)
	upstream.AppendLines("ra/nd/rand", `{"name":"rand","vers":"0.8.5"}`)

	require.NoError(t, repo.FetchAllRefs(ctx))
	require.NoError(t, repo.ResetHardTo(ctx, "master"))

	newTree, err := repo.HeadTree(ctx)
	require.NoError(t, err)
	require.NotEqual(t, oldTree.Hash, newTree.Hash)

	lines, err := repo.Diff(ctx, oldTree, newTree)
	require.NoError(t, err)

	var added []index.DiffLine
	for _, line := range lines {
		if line.IsAddition() {
			added = append(added, line)
		}
	}
	require.Len(t, added, 2)
	assert.Equal(t, "ra/nd/rand", added[0].File)
	assert.Equal(t, `{"name":"rand","vers":"0.8.5"}`, added[0].Content)
	assert.Equal(t, "se/rd/serde", added[1].File)
	assert.Equal(t, `{"name":"serde","vers":"1.0.1"}`, added[1].Content)

	for _, line := range lines {
		if line.Content == `{"name":"serde","vers":"1.0.0"}` {
			assert.Equal(t, index.OriginContext, line.Origin)
		}
	}
}

func TestFetchAllRefsUpToDateIsNotAnError(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	repo, _ := cloneFixture(t, upstream)

	require.NoError(t, repo.FetchAllRefs(context.Background()))
	require.NoError(t, repo.FetchAllRefs(context.Background()))
}

func TestFetchAllRefsUnknownRemote(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	_, dir := cloneFixture(t, upstream)

	repo, err := index.Open(context.Background(), index.Options{Path: dir, Remote: "mirror"})
	require.NoError(t, err)

	err = repo.FetchAllRefs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrRemoteMissing)
	assert.ErrorIs(t, err, index.ErrRepository)
}

func TestResetHardToMissingBranch(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	repo, _ := cloneFixture(t, upstream)

	err := repo.ResetHardTo(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrBranchMissing)
}

func TestResetHardToDiscardsLocalChanges(t *testing.T) {
	ctx := context.Background()
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	repo, dir := cloneFixture(t, upstream)

	testsupport.WriteFile(t, filepath.Join(dir, "1", "a"), "local edit\n")

	upstream.AppendLines("1/a", `{"name":"a","vers":"1.1.0"}`)
	require.NoError(t, repo.FetchAllRefs(ctx))
	require.NoError(t, repo.ResetHardTo(ctx, ""))

	content := testsupport.ReadFile(t, filepath.Join(dir, "1", "a"))
	assert.Equal(t, "{\"name\":\"a\",\"vers\":\"1.0.0\"}\n{\"name\":\"a\",\"vers\":\"1.1.0\"}\n", content)
}

func TestDiffSameTreeIsEmpty(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	repo, _ := cloneFixture(t, upstream)

	tree, err := repo.HeadTree(context.Background())
	require.NoError(t, err)

	lines, err := repo.Diff(context.Background(), tree, tree)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDiffReportsDeletedFiles(t *testing.T) {
	ctx := context.Background()
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	upstream.AppendLines("1/b", `{"name":"b","vers":"1.0.0"}`)
	repo, _ := cloneFixture(t, upstream)
	oldTree, err := repo.HeadTree(ctx)
	require.NoError(t, err)

	upstream.Remove("1/b")
	require.NoError(t, repo.FetchAllRefs(ctx))
	require.NoError(t, repo.ResetHardTo(ctx, "master"))
	newTree, err := repo.HeadTree(ctx)
	require.NoError(t, err)

	lines, err := repo.Diff(ctx, oldTree, newTree)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, index.OriginDeletion, lines[0].Origin)
	assert.False(t, lines[0].IsAddition())
	assert.Equal(t, "1/b", lines[0].File)
}

func TestDiffRejectsForeignTrees(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)
	repo, _ := cloneFixture(t, upstream)

	_, err := repo.Diff(context.Background(), index.Tree{Hash: "a"}, index.Tree{Hash: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrRepository)
}

func TestCloneCreatesCheckoutOnBranch(t *testing.T) {
	upstream := testsupport.NewIndexUpstream(t)
	upstream.AppendLines("1/a", `{"name":"a","vers":"1.0.0"}`)

	dir := filepath.Join(t.TempDir(), "clone")
	repo, err := index.Clone(context.Background(), index.Options{Path: dir, URL: upstream.Dir})
	require.NoError(t, err)
	assert.Equal(t, dir, repo.Path())
	assert.Equal(t, "master", repo.Branch())

	_, err = repo.HeadTree(context.Background())
	require.NoError(t, err)

	_, err = index.Clone(context.Background(), index.Options{Path: dir, URL: upstream.Dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrRepository)
}
