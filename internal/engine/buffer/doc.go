// Package buffer provides the thread-safe text buffer behind the editor.
//
// The buffer package provides:
//
//   - Thread-safe read/write access via sync.RWMutex
//   - Rune-indexed offsets, so one emoji counts as one position
//   - A caret and a selection that follow edits
//   - Line ending normalization on load
//   - Revision tracking for change detection and saved state
//   - A read-only mode that rejects every mutation
//
// Basic usage:
//
//	buf := buffer.NewBufferFromString("Hello, World!")
//
//	buf.Insert(7, "Beautiful ")   // "Hello, Beautiful World!"
//	buf.Delete(0, 7)              // "Beautiful World!"
//	buf.ReplaceAll("World", "Go") // "Beautiful Go!"
//
// Offsets:
//
// All offsets count runes, not bytes. Range accessors used by plugins
// (TextRange, Clamp) clamp out-of-bounds values instead of failing; the
// mutating calls (Insert, Delete) report ErrOffsetOutOfRange and
// ErrRangeInvalid so the caller decides how lenient to be.
package buffer
