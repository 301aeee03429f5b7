package index

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Tree is a snapshot of the index at one commit.
type Tree struct {
	Hash string
	tree *object.Tree
}

// Origin classifies a diff line.
type Origin int

const (
	OriginContext Origin = iota
	OriginAddition
	OriginDeletion
)

func (o Origin) String() string {
	switch o {
	case OriginAddition:
		return "+"
	case OriginDeletion:
		return "-"
	default:
		return " "
	}
}

// DiffLine is one line of a patch, without its marker or trailing newline.
type DiffLine struct {
	File    string
	Origin  Origin
	Content string
}

// IsAddition reports whether the line was added in the newer tree.
func (l DiffLine) IsAddition() bool {
	return l.Origin == OriginAddition
}

// HeadTree resolves HEAD to its commit tree.
func (r *Repository) HeadTree(ctx context.Context) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return Tree{}, wrapError(ErrRepository, err, "resolve HEAD")
	}
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Tree{}, wrapError(ErrHeadUnresolved, err, "resolve HEAD")
		}
		return Tree{}, wrapError(ErrRepository, err, "resolve HEAD")
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return Tree{}, wrapError(ErrHeadUnresolved, err, "load commit %s", ref.Hash())
	}
	tree, err := commit.Tree()
	if err != nil {
		return Tree{}, wrapError(ErrRepository, err, "load tree of %s", ref.Hash())
	}
	return Tree{Hash: tree.Hash.String(), tree: tree}, nil
}

// Diff returns the patch between two trees as lines, file by file in path
// order and hunk by hunk within a file. Binary files are skipped.
func (r *Repository) Diff(ctx context.Context, oldTree, newTree Tree) ([]DiffLine, error) {
	if oldTree.Hash != "" && oldTree.Hash == newTree.Hash {
		return nil, nil
	}
	if oldTree.tree == nil || newTree.tree == nil {
		return nil, wrapError(ErrRepository, nil, "diff: tree not loaded from this repository")
	}
	patch, err := oldTree.tree.PatchContext(ctx, newTree.tree)
	if err != nil {
		return nil, wrapError(ErrRepository, err, "diff %s..%s", short(oldTree.Hash), short(newTree.Hash))
	}

	var lines []DiffLine
	for _, fp := range patch.FilePatches() {
		if fp.IsBinary() {
			continue
		}
		file := patchPath(fp)
		for _, chunk := range fp.Chunks() {
			origin := chunkOrigin(chunk.Type())
			content := strings.TrimSuffix(chunk.Content(), "\n")
			if content == "" && chunk.Content() == "" {
				continue
			}
			for _, line := range strings.Split(content, "\n") {
				lines = append(lines, DiffLine{File: file, Origin: origin, Content: line})
			}
		}
	}
	return lines, nil
}

func chunkOrigin(op diff.Operation) Origin {
	switch op {
	case diff.Add:
		return OriginAddition
	case diff.Delete:
		return OriginDeletion
	default:
		return OriginContext
	}
}

func patchPath(fp diff.FilePatch) string {
	from, to := fp.Files()
	if to != nil {
		return to.Path()
	}
	if from != nil {
		return from.Path()
	}
	return ""
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
