package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cratewatch/internal/config"
	"cratewatch/internal/indexsync"
	"cratewatch/internal/logging"
	"cratewatch/internal/notifications"
	"cratewatch/internal/worker"
)

// Syncer runs one index pass.
type Syncer interface {
	Sync(ctx context.Context) (indexsync.Result, error)
}

// Drainer runs one queue pass.
type Drainer interface {
	Drain(ctx context.Context) (worker.Report, error)
}

// Counter reports queue depth.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithIntervals overrides the loop timings taken from the workflow config.
func WithIntervals(syncEvery, drainEvery, retryAfter time.Duration) Option {
	return func(d *Daemon) {
		if syncEvery > 0 {
			d.syncInterval = syncEvery
		}
		if drainEvery > 0 {
			d.drainInterval = drainEvery
		}
		if retryAfter > 0 {
			d.retryInterval = retryAfter
		}
	}
}

// WithNotifier sends failure and completion events to svc.
func WithNotifier(svc notifications.Service) Option {
	return func(d *Daemon) {
		if svc != nil {
			d.notifier = svc
		}
	}
}

// Daemon schedules sync and drain passes and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	syncer   Syncer
	drainer  Drainer
	counter  Counter
	notifier notifications.Service
	logger   *slog.Logger

	syncInterval  time.Duration
	drainInterval time.Duration
	retryInterval time.Duration

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group

	mu    sync.RWMutex
	state Status
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string

	LastSync      time.Time
	LastSyncError string
	LastResult    indexsync.Result
	SyncPasses    int

	LastDrain      time.Time
	LastDrainError string
	LastReport     worker.Report
	DrainPasses    int

	QueueDepth int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, syncer Syncer, drainer Drainer, counter Counter, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || syncer == nil || drainer == nil {
		return nil, errors.New("daemon requires config, syncer, and drainer")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:           cfg,
		syncer:        syncer,
		drainer:       drainer,
		counter:       counter,
		notifier:      notifications.NewService(cfg),
		logger:        logging.NewComponentLogger(logger, "daemon"),
		syncInterval:  seconds(cfg.Workflow.SyncInterval),
		drainInterval: seconds(cfg.Workflow.DrainInterval),
		retryInterval: seconds(cfg.Workflow.ErrorRetryInterval),
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the lock and launches both loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another cratewatch daemon instance holds %s", d.lockPath)
	}

	logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: d.cfg.BuildLogDir(), Pattern: "*.log"},
	)

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	d.cancel = cancel
	d.group = group
	d.running.Store(true)

	group.Go(func() error { return d.syncLoop(groupCtx) })
	group.Go(func() error { return d.drainLoop(groupCtx) })

	d.logger.Info("cratewatch daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("sync_interval", d.syncInterval),
		logging.Duration("drain_interval", d.drainInterval),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels both loops, waits for the in-flight passes, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.group != nil {
		if err := d.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("daemon loop exited with error", logging.Error(err))
		}
		d.group = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("cratewatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.RLock()
	status := d.state
	d.mu.RUnlock()

	status.Running = d.running.Load()
	status.LockFilePath = d.lockPath
	if d.counter != nil {
		depth, err := d.counter.Count(ctx)
		if err != nil {
			d.logger.Warn("failed to read queue depth", logging.Error(err))
		}
		status.QueueDepth = depth
	}
	return status
}

func (d *Daemon) syncLoop(ctx context.Context) error {
	failing := false
	for {
		passCtx := logging.WithCorrelationID(ctx, uuid.NewString())
		result, err := d.syncer.Sync(passCtx)

		d.mu.Lock()
		d.state.LastSync = time.Now()
		d.state.LastResult = result
		d.state.SyncPasses++
		d.state.LastSyncError = errorString(err)
		d.mu.Unlock()

		wait := d.syncInterval
		if err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(logging.WithContext(passCtx, d.logger), "index sync failed", "sync_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check index path, remote URL, and network access"),
				logging.String(logging.FieldImpact, "new releases are not queued until a sync succeeds"),
				logging.Duration("retry_in", d.retryInterval),
			)
			wait = d.retryInterval
			if !failing {
				d.notify(passCtx, "sync_failed", d.notifier.NotifySyncFailed(passCtx, err))
			}
			failing = true
		} else if err == nil && failing {
			failing = false
			d.notify(passCtx, "sync_recovered", d.notifier.NotifySyncRecovered(passCtx, result.Enqueued))
		}
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

func (d *Daemon) drainLoop(ctx context.Context) error {
	alerted := make(map[int64]struct{})
	for {
		passCtx := logging.WithCorrelationID(ctx, uuid.NewString())
		report, err := d.drainer.Drain(passCtx)

		d.mu.Lock()
		d.state.LastDrain = time.Now()
		d.state.LastReport = report
		d.state.DrainPasses++
		d.state.LastDrainError = errorString(err)
		d.mu.Unlock()

		wait := d.drainInterval
		if err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(logging.WithContext(passCtx, d.logger), "queue drain failed", "drain_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "queued releases wait until the queue is readable"),
				logging.Duration("retry_in", d.retryInterval),
			)
			wait = d.retryInterval
		}
		d.notifyDrain(passCtx, report, alerted)
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

// notifyDrain reports each failing entry once until it builds, and summarizes
// passes that built something.
func (d *Daemon) notifyDrain(ctx context.Context, report worker.Report, alerted map[int64]struct{}) {
	if ctx.Err() != nil {
		return
	}
	for _, o := range report.Outcomes {
		switch o.Status {
		case worker.StatusFailed:
			if _, seen := alerted[o.Entry.ID]; seen {
				continue
			}
			alerted[o.Entry.ID] = struct{}{}
			d.notify(ctx, "build_failed", d.notifier.NotifyBuildFailed(ctx, o.Entry.Name, o.Entry.Version, o.Err))
		default:
			delete(alerted, o.Entry.ID)
		}
	}
	if built := report.Count(worker.StatusBuilt); built > 0 {
		failed := report.Count(worker.StatusFailed)
		d.notify(ctx, "drain_completed", d.notifier.NotifyDrainCompleted(ctx, built, failed, report.Duration))
	}
}

func (d *Daemon) notify(ctx context.Context, event string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, d.logger), "notification failed", "notification_failed",
		logging.String("notification", event),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "the event is only recorded in the log"),
	)
}

// sleep waits for d or until ctx ends and reports whether the loop should continue.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return time.Second
	}
	return time.Duration(n) * time.Second
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
