package embedding

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("no texts to embed")

// Error reports an embedding request that failed after Attempts tries.
type Error struct {
	Attempts int
	Batch    int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding %d texts failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, such as a rejected input.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
