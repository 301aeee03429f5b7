package queue

import (
	"context"
	"database/sql"
)

func (s *Store) ExecForTest(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.execWithRetry(ctx, query, args...)
}
