package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrQuotaExceeded is returned when a local store has no room for a write.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrRemote is returned when the remote API answers with a non 2xx status code.
	ErrRemote = errors.New("remote api error")
)
