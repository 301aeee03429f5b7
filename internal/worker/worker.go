package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cratewatch/internal/logging"
	"cratewatch/internal/queue"
)

// Queue is the part of the store a drain pass uses.
type Queue interface {
	ListPending(ctx context.Context) ([]queue.Entry, error)
	Remove(ctx context.Context, id int64) error
}

// Builder performs the unit of work for one release.
type Builder interface {
	Build(ctx context.Context, name, version string) error
}

// BuildFunc adapts a function to Builder.
type BuildFunc func(ctx context.Context, name, version string) error

// Build calls f.
func (f BuildFunc) Build(ctx context.Context, name, version string) error {
	return f(ctx, name, version)
}

// Status is the result of attempting one entry.
type Status string

const (
	StatusBuilt        Status = "built"
	StatusFailed       Status = "failed"
	StatusRemoveFailed Status = "remove_failed"
)

// Outcome records what happened to one entry.
type Outcome struct {
	Entry    queue.Entry
	Status   Status
	Err      error
	Duration time.Duration
}

// Report summarizes one drain pass.
type Report struct {
	Outcomes []Outcome
	Pending  int
	Duration time.Duration
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Worker applies a Builder to queued entries.
type Worker struct {
	queue   Queue
	builder Builder
	logger  *slog.Logger
}

// New constructs a Worker.
func New(q Queue, b Builder, logger *slog.Logger) *Worker {
	return &Worker{
		queue:   q,
		builder: b,
		logger:  logging.NewComponentLogger(logger, "worker"),
	}
}

// DrainOnce attempts every pending entry once. Per-entry failures are logged
// and never returned; only a failed listing or cancellation is.
func (w *Worker) DrainOnce(ctx context.Context) error {
	_, err := w.Drain(ctx)
	return err
}

// Drain is DrainOnce with a per-entry report. When ctx is canceled between
// entries the pass stops and the remaining entries stay queued.
func (w *Worker) Drain(ctx context.Context) (Report, error) {
	start := time.Now()
	logger := logging.WithContext(ctx, w.logger)

	entries, err := w.queue.ListPending(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list pending entries: %w", err)
	}
	report := Report{Pending: len(entries), Outcomes: make([]Outcome, 0, len(entries))}
	if len(entries) == 0 {
		logger.Debug("queue empty", logging.String(logging.FieldEventType, "drain_empty"))
		return report, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			logger.Info("drain interrupted",
				logging.Int("attempted", len(report.Outcomes)),
				logging.Int("remaining", len(entries)-len(report.Outcomes)),
				logging.String(logging.FieldEventType, "drain_interrupted"),
			)
			return report, err
		}
		report.Outcomes = append(report.Outcomes, w.process(ctx, entry))
	}

	report.Duration = time.Since(start)
	logger.Info("drain pass complete",
		logging.Int("pending", report.Pending),
		logging.Int("built", report.Count(StatusBuilt)),
		logging.Int("failed", report.Count(StatusFailed)),
		logging.Int("remove_failed", report.Count(StatusRemoveFailed)),
		logging.Duration("duration", report.Duration),
		logging.String(logging.FieldEventType, "drain_complete"),
	)
	return report, nil
}

func (w *Worker) process(ctx context.Context, entry queue.Entry) Outcome {
	entryCtx := logging.WithEntryID(ctx, entry.ID)
	logger := logging.WithRelease(logging.WithContext(entryCtx, w.logger), entry.Name, entry.Version)
	start := time.Now()

	if err := w.builder.Build(entryCtx, entry.Name, entry.Version); err != nil {
		logging.WarnWithContext(logger, "build failed; entry left in queue", "build_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the build log for this release"),
			logging.String(logging.FieldImpact, "release will be retried on the next drain pass"),
		)
		return Outcome{Entry: entry, Status: StatusFailed, Err: err, Duration: time.Since(start)}
	}
	elapsed := time.Since(start)

	if err := w.queue.Remove(context.WithoutCancel(entryCtx), entry.ID); err != nil {
		logging.WarnWithContext(logger, "built entry could not be removed", "remove_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database connectivity"),
			logging.String(logging.FieldImpact, "release will be built again on the next drain pass"),
		)
		return Outcome{Entry: entry, Status: StatusRemoveFailed, Err: err, Duration: elapsed}
	}

	logger.Info("release built",
		logging.Duration("duration", elapsed),
		logging.String(logging.FieldEventType, "build_succeeded"),
	)
	return Outcome{Entry: entry, Status: StatusBuilt, Duration: elapsed}
}
