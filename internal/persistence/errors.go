package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")

	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")

	// ErrConstraintViolation is returned when a check constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")

	// ErrForeignKeyViolation is returned when a referenced record does not exist.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")

	// ErrNotAvailable is returned when a conditional room update finds the room
	// in a state other than disponible.
	ErrNotAvailable = errors.New("persistence: room not available")

	// ErrStateMismatch is returned when a conditional session update finds the
	// row in a different status than the caller expected.
	ErrStateMismatch = errors.New("persistence: state mismatch")
)
