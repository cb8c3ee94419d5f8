package lint

import (
	"errors"
	"fmt"
)

// ErrStale indicates a lint response arrived after a newer submission was
// issued and was discarded.
var ErrStale = errors.New("stale lint response")

// Error reports a failed lint submission.
type Error struct {
	Seq uint64
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("lint #%d: %v", e.Seq, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
