package testsupport

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// IndexUpstream is an on-disk git repository standing in for the remote package index.
type IndexUpstream struct {
	t    testing.TB
	Dir  string
	repo *git.Repository
	wt   *git.Worktree
}

// NewIndexUpstream initializes an empty repository on the master branch.
func NewIndexUpstream(t testing.TB) *IndexUpstream {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "upstream")
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Master},
	})
	if err != nil {
		t.Fatalf("init upstream: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("upstream worktree: %v", err)
	}
	return &IndexUpstream{t: t, Dir: dir, repo: repo, wt: wt}
}

// AppendLines appends lines to an index file and commits, returning the commit hash.
func (u *IndexUpstream) AppendLines(path string, lines ...string) string {
	u.t.Helper()

	fs := u.wt.Filesystem
	existing, err := util.ReadFile(fs, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		u.t.Fatalf("read %s: %v", path, err)
	}
	data := append([]byte(nil), existing...)
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	return u.WriteFile(path, string(data))
}

// WriteFile replaces an index file and commits, returning the commit hash.
func (u *IndexUpstream) WriteFile(path, content string) string {
	u.t.Helper()

	if err := util.WriteFile(u.wt.Filesystem, path, []byte(content), 0o644); err != nil {
		u.t.Fatalf("write %s: %v", path, err)
	}
	if _, err := u.wt.Add(path); err != nil {
		u.t.Fatalf("stage %s: %v", path, err)
	}
	return u.commit("update " + path)
}

// Remove deletes an index file and commits, returning the commit hash.
func (u *IndexUpstream) Remove(path string) string {
	u.t.Helper()

	if _, err := u.wt.Remove(path); err != nil {
		u.t.Fatalf("remove %s: %v", path, err)
	}
	return u.commit("remove " + path)
}

func (u *IndexUpstream) commit(msg string) string {
	u.t.Helper()

	hash, err := u.wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "index", Email: "index@example.com", When: time.Now()},
	})
	if err != nil {
		u.t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

// Clone checks the upstream out into dir, as the index clone command would.
func (u *IndexUpstream) Clone(dir string) {
	u.t.Helper()

	if _, err := git.PlainClone(dir, false, &git.CloneOptions{URL: u.Dir}); err != nil {
		u.t.Fatalf("clone upstream: %v", err)
	}
}
