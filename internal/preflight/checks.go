package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"cratewatch/internal/config"
	"cratewatch/internal/deps"
	"cratewatch/internal/index"
	"cratewatch/internal/queue"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckIndex verifies that the checkout opens and HEAD resolves to a tree.
func CheckIndex(ctx context.Context, cfg *config.Config) Result {
	const name = "Index checkout"
	repo, err := index.Open(ctx, index.Options{
		Path:   cfg.Index.Path,
		Remote: cfg.Index.Remote,
		Branch: cfg.Index.Branch,
	})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v; run `cratewatch index clone`)", cfg.Index.Path, err)}
	}
	head, err := repo.HeadTree(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Index.Path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (tree %s)", cfg.Index.Path, shortHash(head.Hash))}
}

// CheckQueue verifies that the queue store opens and answers a count.
func CheckQueue(ctx context.Context, cfg *config.Config) Result {
	const name = "Queue store"
	store, err := queue.Open(ctx, cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Queue.Driver, err)}
	}
	defer store.Close()
	count, err := store.Count(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s %s (error: %v)", store.Driver(), store.Target(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s (%d pending)", store.Driver(), store.Target(), count)}
}

// CheckBuilder verifies that the configured build command resolves to an executable.
func CheckBuilder(cfg *config.Config) Result {
	const name = "Build command"
	statuses := CheckSystemDeps(cfg)
	if missing := deps.Missing(statuses); len(missing) > 0 {
		return Result{Name: name, Detail: missing[0].Detail}
	}
	return Result{Name: name, Passed: true, Detail: statuses[0].Path}
}

// CheckSystemDeps evaluates the external programs the config refers to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Builder",
			Command:     strings.TrimSpace(cfg.Builder.Command),
			Description: "Required to drain the queue",
		},
	})
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
