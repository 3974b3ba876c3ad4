package api

import "errors"

// Errors reported by API implementations.
var (
	// ErrReadOnly is returned when a mutation targets a read-only buffer.
	ErrReadOnly = errors.New("buffer is read-only")

	// ErrEmptyPattern is returned by ReplaceText when find is empty.
	ErrEmptyPattern = errors.New("replace pattern is empty")

	// ErrDuplicateKey is returned when a function key already has a callback.
	ErrDuplicateKey = errors.New("function key already registered")

	// ErrInvalidKey is returned for names that are not F1..F12.
	ErrInvalidKey = errors.New("invalid function key")

	// ErrNilCallback is returned when a nil handler or callback is registered.
	ErrNilCallback = errors.New("callback is nil")
)
