package config

import "errors"

// Errors returned by configuration loading.
var (
	// ErrFileNotFound indicates an explicitly requested config file doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrInvalidLocale indicates the locale is not a BCP 47 tag.
	ErrInvalidLocale = errors.New("invalid locale")

	// ErrInvalidTimeout indicates a negative script timeout.
	ErrInvalidTimeout = errors.New("invalid script timeout")
)
