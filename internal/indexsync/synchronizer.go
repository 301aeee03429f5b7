package indexsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cratewatch/internal/index"
	"cratewatch/internal/logging"
	"cratewatch/internal/queue"
)

// Repository is the slice of the index checkout a pass needs.
type Repository interface {
	HeadTree(ctx context.Context) (index.Tree, error)
	FetchAllRefs(ctx context.Context) error
	ResetHardTo(ctx context.Context, branch string) error
	Diff(ctx context.Context, oldTree, newTree index.Tree) ([]index.DiffLine, error)
}

// OpenFunc attaches to the checkout at the start of each pass.
type OpenFunc func(ctx context.Context) (Repository, error)

// GitOpener opens the on-disk checkout described by opts.
func GitOpener(opts index.Options) OpenFunc {
	return func(ctx context.Context) (Repository, error) {
		repo, err := index.Open(ctx, opts)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// Enqueuer appends releases to the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, record queue.Record) (queue.Entry, error)
}

// Result summarizes one pass.
type Result struct {
	OldTree         string
	NewTree         string
	Lines           int
	Candidates      int
	Enqueued        int
	Malformed       int
	Incomplete      int
	EnqueueFailures int
	Duration        time.Duration
}

// Unchanged reports whether the pass saw no new index commit.
func (r Result) Unchanged() bool {
	return r.OldTree != "" && r.OldTree == r.NewTree
}

// Synchronizer runs index passes. It is not safe to run two passes against
// the same checkout at once.
type Synchronizer struct {
	open   OpenFunc
	queue  Enqueuer
	branch string
	logger *slog.Logger
}

// New constructs a Synchronizer. An empty branch falls back to index.DefaultBranch.
func New(open OpenFunc, q Enqueuer, branch string, logger *slog.Logger) *Synchronizer {
	if branch == "" {
		branch = index.DefaultBranch
	}
	return &Synchronizer{
		open:   open,
		queue:  q,
		branch: branch,
		logger: logging.NewComponentLogger(logger, "indexsync"),
	}
}

// SyncAndEnqueue runs one pass and reports only fatal repository errors.
func (s *Synchronizer) SyncAndEnqueue(ctx context.Context) error {
	_, err := s.Sync(ctx)
	return err
}

// Sync runs one pass and returns its counters.
func (s *Synchronizer) Sync(ctx context.Context) (Result, error) {
	start := time.Now()
	logger := logging.WithContext(ctx, s.logger)
	var result Result

	if s.open == nil || s.queue == nil {
		return result, errors.New("indexsync: synchronizer is not configured")
	}

	repo, err := s.open(ctx)
	if err != nil {
		return result, fmt.Errorf("open index: %w", err)
	}

	oldTree, err := repo.HeadTree(ctx)
	if err != nil {
		return result, fmt.Errorf("read head before fetch: %w", err)
	}
	result.OldTree = oldTree.Hash

	if err := repo.FetchAllRefs(ctx); err != nil {
		return result, fmt.Errorf("fetch index: %w", err)
	}
	if err := repo.ResetHardTo(ctx, s.branch); err != nil {
		return result, fmt.Errorf("reset index to %s: %w", s.branch, err)
	}

	// The checkout has moved to the new HEAD and the old tree is no longer
	// recorded anywhere, so everything from here on ignores cancellation.
	postReset := context.WithoutCancel(ctx)

	newTree, err := repo.HeadTree(postReset)
	if err != nil {
		return result, fmt.Errorf("read head after reset: %w", err)
	}
	result.NewTree = newTree.Hash

	if result.Unchanged() {
		result.Duration = time.Since(start)
		logger.Info("index unchanged",
			logging.String("head", newTree.Hash),
			logging.String(logging.FieldEventType, "index_unchanged"),
		)
		return result, nil
	}

	lines, err := repo.Diff(postReset, oldTree, newTree)
	if err != nil {
		return result, fmt.Errorf("diff index %s..%s: %w", oldTree.Hash, newTree.Hash, err)
	}

	for _, line := range lines {
		result.Lines++
		if !line.IsAddition() {
			continue
		}
		record, err := ParseRecord(line.Content)
		switch {
		case errors.Is(err, ErrNotCandidate):
			continue
		case errors.Is(err, ErrMalformed):
			result.Candidates++
			result.Malformed++
			logging.WarnWithContext(logger, "malformed index line skipped", "index_line_malformed",
				logging.String("file", line.File),
				logging.String("line", truncate(line.Content, 200)),
				logging.String(logging.FieldErrorHint, "upstream index entry is not valid JSON"),
				logging.String(logging.FieldImpact, "release on this line was not queued"),
			)
			continue
		case errors.Is(err, ErrIncomplete):
			result.Candidates++
			result.Incomplete++
			logger.Debug("index line without name or vers skipped",
				logging.String("file", line.File),
				logging.String(logging.FieldEventType, "index_line_incomplete"),
			)
			continue
		}
		result.Candidates++

		entry, err := s.queue.Enqueue(postReset, record)
		if err != nil {
			result.EnqueueFailures++
			hint := "check queue database connectivity"
			if errors.Is(err, queue.ErrInvalidRecord) {
				hint = "index entry has an empty name or version"
			}
			logging.WarnWithContext(logger, "enqueue failed; release skipped for this pass", "enqueue_failed",
				append(logging.Release(record.Name, record.Version),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, hint),
					logging.String(logging.FieldImpact, "release will not be built unless queued manually"),
				)...,
			)
			continue
		}
		result.Enqueued++
		logging.Info(logger, "release queued", append(logging.Release(record.Name, record.Version),
			logging.Int64(logging.FieldEntryID, entry.ID),
			logging.String(logging.FieldEventType, "release_queued"),
		)...)
	}

	result.Duration = time.Since(start)
	logger.Info("index sync complete",
		logging.String("old_tree", result.OldTree),
		logging.String("new_tree", result.NewTree),
		logging.Int("lines", result.Lines),
		logging.Int("enqueued", result.Enqueued),
		logging.Int("malformed", result.Malformed),
		logging.Int("incomplete", result.Incomplete),
		logging.Int("enqueue_failures", result.EnqueueFailures),
		logging.Duration("duration", result.Duration),
		logging.String(logging.FieldEventType, "index_sync_complete"),
	)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
