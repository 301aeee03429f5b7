package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrStore marks any failure talking to the backing database.
	ErrStore = errors.New("queue store error")
	// ErrInvalidRecord is returned when a record is missing its name or version.
	ErrInvalidRecord = errors.New("invalid queue record")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
