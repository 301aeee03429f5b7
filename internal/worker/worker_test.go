package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cratewatch/internal/logging"
	"cratewatch/internal/queue"
	"cratewatch/internal/testsupport"
	"cratewatch/internal/worker"
)

type recordingBuilder struct {
	calls []string
	fail  map[string]int
}

func (b *recordingBuilder) Build(_ context.Context, name, version string) error {
	b.calls = append(b.calls, name+"@"+version)
	if b.fail[name] > 0 {
		b.fail[name]--
		return errors.New("build exploded")
	}
	return nil
}

type flakyQueue struct {
	*queue.Store
	removeErr error
	listErr   error
}

func (q *flakyQueue) ListPending(ctx context.Context) ([]queue.Entry, error) {
	if q.listErr != nil {
		return nil, q.listErr
	}
	return q.Store.ListPending(ctx)
}

func (q *flakyQueue) Remove(ctx context.Context, id int64) error {
	if q.removeErr != nil {
		return q.removeErr
	}
	return q.Store.Remove(ctx, id)
}

func TestDrainOnceProcessesInFIFOOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "e1", "1.0.0")
	testsupport.MustEnqueue(t, store, "e2", "1.0.0")
	testsupport.MustEnqueue(t, store, "e3", "1.0.0")

	b := &recordingBuilder{}
	require.NoError(t, worker.New(store, b, logging.NewNop()).DrainOnce(context.Background()))

	assert.Equal(t, []string{"e1@1.0.0", "e2@1.0.0", "e3@1.0.0"}, b.calls)
	assert.Empty(t, testsupport.PendingRecords(t, store))
}

func TestFailedBuildStaysQueuedUntilRetrySucceeds(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "a", "1.0.0")
	flaky := testsupport.MustEnqueue(t, store, "flaky", "2.0.0")
	testsupport.MustEnqueue(t, store, "c", "1.0.0")

	b := &recordingBuilder{fail: map[string]int{"flaky": 1}}
	w := worker.New(store, b, nil)

	report, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(worker.StatusBuilt))
	assert.Equal(t, 1, report.Count(worker.StatusFailed))
	assert.Equal(t, []queue.Record{flaky.Record()}, testsupport.PendingRecords(t, store))

	require.NoError(t, w.DrainOnce(context.Background()))
	assert.Empty(t, testsupport.PendingRecords(t, store))
	assert.Equal(t, []string{"a@1.0.0", "flaky@2.0.0", "c@1.0.0", "flaky@2.0.0"}, b.calls)
}

func TestRemoveFailureDoesNotAbortPass(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "a", "1.0.0")
	testsupport.MustEnqueue(t, store, "b", "1.0.0")

	q := &flakyQueue{Store: store, removeErr: queue.ErrStore}
	b := &recordingBuilder{}
	report, err := worker.New(q, b, nil).Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Count(worker.StatusRemoveFailed))
	assert.Len(t, b.calls, 2)
	assert.Len(t, testsupport.PendingRecords(t, store), 2)
	for _, o := range report.Outcomes {
		assert.ErrorIs(t, o.Err, queue.ErrStore)
	}
}

func TestListFailureIsReturned(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	q := &flakyQueue{Store: store, listErr: queue.ErrStore}

	err := worker.New(q, &recordingBuilder{}, nil).DrainOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrStore)
}

func TestCancellationStopsBetweenEntries(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, store, "a", "1.0.0")
	testsupport.MustEnqueue(t, store, "b", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	build := worker.BuildFunc(func(_ context.Context, name, version string) error {
		calls = append(calls, name)
		cancel()
		return nil
	})

	report, err := worker.New(store, build, nil).Drain(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, calls)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, worker.StatusBuilt, report.Outcomes[0].Status)
	assert.Equal(t, []queue.Record{{Name: "b", Version: "1.0.0"}}, testsupport.PendingRecords(t, store))
}

func TestDrainEmptyQueue(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	report, err := worker.New(store, &recordingBuilder{}, nil).Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Pending)
	assert.Empty(t, report.Outcomes)
}

func TestBuildReceivesEntryIDInContext(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	entry := testsupport.MustEnqueue(t, store, "a", "1.0.0")

	var seen int64
	build := worker.BuildFunc(func(ctx context.Context, _, _ string) error {
		seen, _ = logging.EntryIDFromContext(ctx)
		return nil
	})
	require.NoError(t, worker.New(store, build, nil).DrainOnce(context.Background()))
	assert.Equal(t, entry.ID, seen)
}
