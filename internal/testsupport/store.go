package testsupport

import (
	"context"
	"testing"

	"cratewatch/internal/config"
	"cratewatch/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue appends a release to the store.
func MustEnqueue(t testing.TB, store *queue.Store, name, version string) queue.Entry {
	t.Helper()

	entry, err := store.Enqueue(context.Background(), queue.Record{Name: name, Version: version})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return entry
}

// PendingRecords lists the queue as records in id order.
func PendingRecords(t testing.TB, store *queue.Store) []queue.Record {
	t.Helper()

	entries, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("store.ListPending: %v", err)
	}
	records := make([]queue.Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.Record())
	}
	return records
}
