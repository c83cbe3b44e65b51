package lib

import "errors"

var (
	// ErrNotFound is returned when a task doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input, e.g. a task without title.
	ErrNotValid = errors.New("not valid")
	// ErrQuotaExceeded is returned when the local store is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrRemote is returned when the remote API answers with a non 2xx status.
	ErrRemote = errors.New("remote API error")
)
