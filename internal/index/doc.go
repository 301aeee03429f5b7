// Package index wraps a local git checkout of the package index.
//
// It exposes the handful of operations change detection needs: resolving
// the HEAD tree, fetching every remote branch, hard-resetting the worktree to
// a remote branch tip, and producing a patch-format diff between two trees
// as a flat sequence of lines. All failures wrap ErrRepository so callers can
// treat them as fatal for the current pass with a single errors.Is check.
package index
