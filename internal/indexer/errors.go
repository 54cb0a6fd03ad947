package indexer

import (
	"errors"
	"fmt"
)

// ErrEmptyTitle is returned for recipes without a title.
var ErrEmptyTitle = errors.New("recipe title is empty")

// NormalizationError reports a recipe that could not be turned into text units.
type NormalizationError struct {
	Title string
	Row   int
	Err   error
}

func (e *NormalizationError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("normalize recipe at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("normalize recipe %q at row %d: %v", e.Title, e.Row, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
