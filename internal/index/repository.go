package index

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	// DefaultRemote is used when Options.Remote is empty.
	DefaultRemote = "origin"
	// DefaultBranch is used when Options.Branch is empty.
	DefaultBranch = "master"
)

// Options locates the checkout and its upstream.
type Options struct {
	Path      string
	URL       string
	Remote    string
	Branch    string
	AuthToken string
}

func (o Options) remote() string {
	if r := strings.TrimSpace(o.Remote); r != "" {
		return r
	}
	return DefaultRemote
}

func (o Options) branch() string {
	if b := strings.TrimSpace(o.Branch); b != "" {
		return b
	}
	return DefaultBranch
}

// auth returns token auth for HTTP(S) remotes. Most hosts accept the token
// as password with any non-empty username.
func (o Options) auth() transport.AuthMethod {
	if strings.TrimSpace(o.AuthToken) == "" {
		return nil
	}
	return &http.BasicAuth{Username: "token", Password: o.AuthToken}
}

// Repository is an opened local checkout of the index.
type Repository struct {
	repo *git.Repository
	opts Options
}

// Open attaches to an existing checkout at opts.Path.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapError(ErrRepository, err, "open %s", opts.Path)
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, wrapError(ErrRepository, nil, "open: path is empty")
	}
	repo, err := git.PlainOpen(opts.Path)
	if err != nil {
		return nil, wrapError(ErrRepository, err, "open %s", opts.Path)
	}
	return &Repository{repo: repo, opts: opts}, nil
}

// Clone creates the checkout at opts.Path from opts.URL with the configured
// branch checked out.
func Clone(ctx context.Context, opts Options) (*Repository, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, wrapError(ErrRepository, nil, "clone: url is empty")
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, wrapError(ErrRepository, nil, "clone: path is empty")
	}
	repo, err := git.PlainCloneContext(ctx, opts.Path, false, &git.CloneOptions{
		URL:           opts.URL,
		RemoteName:    opts.remote(),
		ReferenceName: plumbing.NewBranchReferenceName(opts.branch()),
		Auth:          opts.auth(),
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryAlreadyExists) {
			return nil, wrapError(ErrRepository, err, "clone into %s", opts.Path)
		}
		return nil, wrapError(ErrRepository, err, "clone %s", opts.URL)
	}
	return &Repository{repo: repo, opts: opts}, nil
}

// Path returns the checkout location.
func (r *Repository) Path() string {
	return r.opts.Path
}

// Branch returns the branch the checkout tracks.
func (r *Repository) Branch() string {
	return r.opts.branch()
}
