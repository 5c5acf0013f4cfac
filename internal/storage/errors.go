package storage

import "errors"

var (
	// ErrNotFound is returned when a run or snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a record_id, run_id or snapshot is
	// inserted twice. Records are never updated in place; a rescan deletes
	// the slot range first.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for values a store cannot persist, such as
	// a negative profit or an empty trader.
	ErrInvalidInput = errors.New("invalid input")
)
