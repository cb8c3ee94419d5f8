package compile

import (
	"errors"
	"fmt"
)

// Errors returned by the compile pipeline.
var (
	// ErrStale indicates a response arrived after a newer submission was
	// issued and was discarded. It is never shown to the user.
	ErrStale = errors.New("stale compile response")

	// ErrEmptyArtifact indicates the service reported success with no body.
	ErrEmptyArtifact = errors.New("compile service returned an empty artifact")
)

// Error reports a failed compile submission.
type Error struct {
	Seq uint64
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("compile #%d: %v", e.Seq, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
