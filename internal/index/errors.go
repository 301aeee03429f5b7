package index

import (
	"errors"
	"fmt"
)

// ErrRepository marks any failure of the index repository: open, fetch, reset or diff.
var ErrRepository = errors.New("index repository error")

// ErrHeadUnresolved is returned when HEAD does not point at a commit, e.g. an empty repository.
var ErrHeadUnresolved = fmt.Errorf("%w: HEAD cannot be resolved", ErrRepository)

// ErrRemoteMissing is returned when the configured remote is not defined in the checkout.
var ErrRemoteMissing = fmt.Errorf("%w: remote not found", ErrRepository)

// ErrBranchMissing is returned when the remote-tracking branch to reset to does not exist.
var ErrBranchMissing = fmt.Errorf("%w: remote branch not found", ErrRepository)

// wrapError attaches context to err while keeping kind checkable with errors.Is.
func wrapError(kind error, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
