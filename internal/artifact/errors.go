package artifact

import "errors"

// Errors returned by artifact operations.
var (
	// ErrReleased indicates the binary reference has already been released.
	ErrReleased = errors.New("artifact released")

	// ErrClosed indicates the manager has been closed.
	ErrClosed = errors.New("artifact manager closed")

	// ErrNilHandle indicates a nil handle was passed to Register.
	ErrNilHandle = errors.New("nil artifact handle")
)
