package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called while the application runs.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoConfig indicates New was called without a configuration.
	ErrNoConfig = errors.New("no configuration")

	// ErrNoFilePath indicates the buffer has no file to save to.
	ErrNoFilePath = errors.New("no file path")

	// ErrReadOnly indicates the document was opened read-only.
	ErrReadOnly = errors.New("document is read-only")
)

// FileError reports a failed file operation.
type FileError struct {
	Op   string // "open" or "save"
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
