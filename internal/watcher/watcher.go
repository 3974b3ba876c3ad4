// Package watcher reports changes to files in watched directories.
//
// It is used to pick up edits to Lua scripts while the editor runs. Editors
// usually save with several operations in quick succession (truncate, write,
// chmod, or write to a temp file and rename), so Debounced merges the
// operations on one path into a single event.
package watcher

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrClosed is returned by Add after Close.
	ErrClosed = errors.New("watcher closed")

	// ErrPathNotExist is returned by Add for a missing directory.
	ErrPathNotExist = errors.New("path does not exist")

	// ErrNotDir is returned by Add for a path that is not a directory.
	ErrNotDir = errors.New("not a directory")
)

// Op is a set of file operations.
type Op uint8

const (
	Create Op = 1 << iota
	Write
	Remove
	Rename
)

var opNames = [...]string{"create", "write", "remove", "rename"}

// String lists the operations, e.g. "create|write".
func (op Op) String() string {
	var names []string
	for i, name := range opNames {
		if op&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Has reports whether op contains every operation in o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a change to one file.
type Event struct {
	Path string
	Op   Op
}

// Watcher delivers events for files in the directories added to it.
// Directories are not watched recursively.
type Watcher interface {
	// Add starts watching dir. Adding a directory twice is not an error.
	Add(dir string) error

	// Events and Errors are closed once the watcher has stopped.
	Events() <-chan Event
	Errors() <-chan error

	Close() error
}

// Filter reports whether an event should be delivered.
type Filter func(Event) bool

// All accepts events accepted by every filter.
func All(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// Visible rejects files whose name starts with a dot, which covers the swap
// and backup files of most editors.
func Visible(e Event) bool {
	return !strings.HasPrefix(filepath.Base(e.Path), ".")
}

// Ext accepts files with one of the extensions, compared case-insensitively.
func Ext(exts ...string) Filter {
	return func(e Event) bool {
		ext := filepath.Ext(e.Path)
		return slices.ContainsFunc(exts, func(x string) bool { return strings.EqualFold(x, ext) })
	}
}

// Ops accepts events that include any of the operations in op.
func Ops(op Op) Filter {
	return func(e Event) bool {
		return e.Op&op != 0
	}
}
