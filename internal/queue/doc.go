// Package queue persists pending releases in an ordered SQL table.
//
// The Store wraps database/sql over either SQLite (modernc.org/sqlite, the
// default) or PostgreSQL (pgx stdlib driver). Entries are appended with a
// store-assigned id, listed in ascending id order, and deleted by id once
// their build succeeds. There is no update-in-place, no priority, and no
// per-row claim: a single worker per store is the deployment assumption.
//
// Schema changes bump schemaVersion in schema.go; an existing database at a
// different version is rejected with ErrSchemaMismatch.
package queue
