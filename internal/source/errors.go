package source

import "errors"

var (
	// ErrPathNotExist indicates the watched file does not exist.
	ErrPathNotExist = errors.New("path does not exist")

	// ErrIsDirectory indicates the path names a directory, not a file.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrClosed indicates the source has been closed.
	ErrClosed = errors.New("source closed")

	// ErrAlreadyStarted indicates Start was called more than once.
	ErrAlreadyStarted = errors.New("source already started")
)
