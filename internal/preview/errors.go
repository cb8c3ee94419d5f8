package preview

import "errors"

// Skip reasons. They are recorded in metrics and logs, never returned to
// callers of Edit.
var (
	// ErrEmptyInput indicates settled content was empty or whitespace only.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnchanged indicates settled content matched the last completed
	// submission.
	ErrUnchanged = errors.New("content unchanged")
)
