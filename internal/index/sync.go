package index

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// FetchAllRefs fetches every branch of the configured remote into
// refs/remotes/<remote>/*. Nothing new to fetch is not an error.
func (r *Repository) FetchAllRefs(ctx context.Context) error {
	remote := r.opts.remote()
	spec := gitconfig.RefSpec("+refs/heads/*:refs/remotes/" + remote + "/*")
	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       r.opts.auth(),
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrRemoteNotFound):
		return wrapError(ErrRemoteMissing, err, "fetch %s", remote)
	default:
		return wrapError(ErrRepository, err, "fetch %s", remote)
	}
}

// ResetHardTo moves HEAD and the worktree to refs/remotes/<remote>/<branch>,
// discarding any local changes.
func (r *Repository) ResetHardTo(ctx context.Context, branch string) error {
	if branch == "" {
		branch = r.opts.branch()
	}
	if err := ctx.Err(); err != nil {
		return wrapError(ErrRepository, err, "reset to %s", branch)
	}
	refName := plumbing.NewRemoteReferenceName(r.opts.remote(), branch)
	ref, err := r.repo.Reference(refName, true)
	if err != nil {
		return wrapError(ErrBranchMissing, err, "resolve %s", refName)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return wrapError(ErrRepository, err, "open worktree")
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		return wrapError(ErrRepository, err, "reset to %s", refName)
	}
	return nil
}
