package domain

import "github.com/wesavefood/wesavefood/pkg/errors"

// Error taxonomy shared by the document store and the collection repos.
// Callers match these with errors.Is; repos wrap them with context but
// never swallow them.
var (
	// ErrNotFound is returned for update/delete targeting a missing record.
	// Reads treat a missing collection as empty instead.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a conditional write lost a race against another
	// writer. The caller must retry the whole read-modify-write.
	ErrConflict = errors.New("write conflict")

	// ErrDuplicate means a record with the same id already exists.
	ErrDuplicate = errors.New("duplicate id")

	// ErrCorrupt means a stored blob failed to parse as JSON.
	ErrCorrupt = errors.New("corrupt collection")

	// ErrUnavailable means the remote content API is unreachable or
	// answered with an unexpected status.
	ErrUnavailable = errors.New("store unavailable")
)
