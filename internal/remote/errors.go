package remote

import (
	"errors"
	"fmt"
)

// ErrUnavailable is matched by every transient service failure: the
// service could not be reached, or it answered with a non-success status.
var ErrUnavailable = errors.New("service unavailable")

// ErrResponseTooLarge indicates a response body exceeded the client limit.
var ErrResponseTooLarge = errors.New("response too large")

// RequestError reports a request that never produced a response.
type RequestError struct {
	Service string
	URL     string
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request to %s: %v", e.Service, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches ErrUnavailable and the wrapped error.
func (e *RequestError) Is(target error) bool {
	return target == ErrUnavailable
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	Service    string
	StatusCode int
	Status     string
	// Message is the service-provided error text, if any.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %s: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned %s", e.Service, e.Status)
}

// Is matches ErrUnavailable.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnavailable
}
