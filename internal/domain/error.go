package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound                = errors.New("entity not found")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrInvalidTransition       = errors.New("invalid job state transition")
	ErrNonMonotonicProgress    = errors.New("progress must be non-decreasing")
	ErrEmptyBatch              = errors.New("batch has no items")
	ErrBatchTooLarge           = errors.New("batch exceeds maximum item count")
	ErrGenerationProvider      = errors.New("generation provider failed")
	ErrAugmentationUnavailable = errors.New("link discovery unavailable")
	ErrInvalidExecContext      = errors.New("invalid query execution context")
	ErrReadDatabaseRow         = errors.New("failed to read database row")
)
