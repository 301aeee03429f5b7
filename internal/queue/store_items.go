package queue

import (
	"context"
	"fmt"
	"time"
)

// Enqueue appends one entry. The store assigns the id, so call order is id order.
func (s *Store) Enqueue(ctx context.Context, record Record) (Entry, error) {
	name, version := record.Name, record.Version
	if name == "" || version == "" {
		return Entry{}, fmt.Errorf("%w: name and version are required (got %q, %q)", ErrInvalidRecord, record.Name, record.Version)
	}

	now := time.Now().UTC()
	entry := Entry{Name: name, Version: version, CreatedAt: now}
	err := s.queryRowWithRetry(ctx,
		"INSERT INTO queue (name, version, created_at) VALUES (?, ?, ?) RETURNING id",
		[]any{name, version, formatTime(now)},
		&entry.ID,
	)
	if err != nil {
		return Entry{}, storeErr(fmt.Sprintf("enqueue %s %s", name, version), err)
	}
	return entry, nil
}

// ListPending returns every entry in ascending id order from a single query.
func (s *Store) ListPending(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM queue ORDER BY id ASC")
	if err != nil {
		return nil, storeErr("list pending", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storeErr("scan entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list pending", err)
	}
	return entries, nil
}

// Remove deletes the entry with the given id. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM queue WHERE id = ?", id); err != nil {
		return storeErr(fmt.Sprintf("remove entry %d", id), err)
	}
	return nil
}

// removeBatchSize keeps each DELETE well under SQLite's bound-variable limit.
const removeBatchSize = 500

// RemoveMany deletes the given ids and reports how many rows existed. Ids are
// deleted in batches; on error the count covers the batches already applied.
func (s *Store) RemoveMany(ctx context.Context, ids ...int64) (int64, error) {
	var removed int64
	for start := 0; start < len(ids); start += removeBatchSize {
		batch := ids[start:min(start+removeBatchSize, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		res, err := s.execWithRetry(ctx, "DELETE FROM queue WHERE id IN ("+makePlaceholders(len(batch))+")", args...)
		if err != nil {
			return removed, storeErr("remove entries", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return removed, storeErr("remove entries", err)
		}
		removed += affected
	}
	return removed, nil
}

// Count returns the number of pending entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRowWithRetry(ctx, "SELECT COUNT(1) FROM queue", nil, &count); err != nil {
		return 0, storeErr("count entries", err)
	}
	return count, nil
}

// Clear removes every pending entry. Ids continue from where they left off.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM queue")
	if err != nil {
		return 0, storeErr("clear queue", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("clear queue", err)
	}
	return affected, nil
}
