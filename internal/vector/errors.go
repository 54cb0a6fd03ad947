package vector

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector does not match the store dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// WriteError reports a failed upsert.
type WriteError struct {
	Records int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write failed for %d records: %v", e.Records, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// QueryError reports a failed similarity query.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}
