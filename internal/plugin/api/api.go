package api

import "golang.org/x/text/language"

// TextModificationHandler is notified after every change to the buffer.
type TextModificationHandler interface {
	// OnTextModified receives the buffer content before and after the edit.
	OnTextModified(prev, current string)
}

// TextModificationFunc adapts a function to TextModificationHandler.
type TextModificationFunc func(prev, current string)

// OnTextModified calls f(prev, current).
func (f TextModificationFunc) OnTextModified(prev, current string) {
	f(prev, current)
}

// EventHandler is the callback for toolbar buttons and function keys.
type EventHandler func()

// API is the editor surface available to plugins and scripts.
type API interface {
	// RegisterButton adds a toolbar button that runs cb when activated.
	RegisterButton(label string, cb EventHandler) error

	// RegisterOnFunctionKeyEvent binds cb to a function key.
	// A key can be bound once; later attempts fail with ErrDuplicateKey
	// and the user is told about the conflict.
	RegisterOnFunctionKeyEvent(key FunctionKey, cb EventHandler) error

	// RegisterTextModificationHandler adds h to the handlers notified on every edit.
	RegisterTextModificationHandler(h TextModificationHandler) error

	// PromptUser asks the user for a line of text.
	// ok is false when the prompt was cancelled or no prompter is available.
	PromptUser(prompt string) (answer string, ok bool)

	// Locale returns the editor locale.
	Locale() language.Tag

	// CaretPosition returns the caret offset, between 0 and TextLength.
	CaretPosition() int

	// SetCaretPosition moves the caret, clamping to [0, TextLength].
	SetCaretPosition(pos int)

	// Text returns the whole buffer.
	Text() string

	// TextRange returns the text in [start, end), clamped to the buffer.
	TextRange(start, end int) string

	// TextLength returns the buffer length.
	TextLength() int

	// InsertText inserts text at the caret.
	InsertText(text string) error

	// InsertTextAt inserts text at idx.
	InsertTextAt(idx int, text string) error

	// DeleteText removes [start, end) and returns the removed text.
	// Nothing is deleted when start > end, start >= TextLength or end <= 0;
	// otherwise the range is clamped.
	DeleteText(start, end int) (string, bool)

	// DeleteBeforeCaret removes text if it immediately precedes the caret.
	DeleteBeforeCaret(text string) (string, bool)

	// ReplaceText replaces every occurrence of find with replace and
	// returns how many were replaced.
	ReplaceText(find, replace string) (int, error)

	// HighlightText selects [start, end), clamped to the buffer.
	HighlightText(start, end int)
}

// Plugin is a compiled-in extension.
type Plugin interface {
	// Start registers the plugin's callbacks with the editor.
	Start(api API) error

	// Name returns the plugin's display name for the given locale.
	Name(locale language.Tag) string
}

// Batcher is implemented by hosts that can hold back change notifications
// while fn runs and deliver them once it returns.
type Batcher interface {
	Batch(fn func())
}

// Scoper is implemented by hosts that can attribute registrations to an
// owner and later drop all of them at once.
type Scoper interface {
	// Scope returns an API whose registrations are tagged with owner.
	Scope(owner string) API

	// RemoveOwner removes every registration tagged with owner.
	RemoveOwner(owner string)
}
