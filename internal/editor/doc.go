// Package editor implements the plugin-facing editor API over a text buffer.
//
// An Editor owns the registrations made by plugins and scripts (toolbar
// buttons, function-key callbacks and text modification handlers) and turns
// every buffer mutation into an OnTextModified(prev, current) notification.
//
// # Notification rules
//
// Handlers run in registration order and each one sees the same prev/current
// pair. Mutations a handler makes while notifications are being delivered are
// applied to the buffer but are not announced again, so a handler that edits
// the text (the emoji substitution, for instance) cannot loop.
//
// Mutations made inside Batch, which wraps every button and function-key
// callback, are coalesced: handlers are notified once with the text from
// before the first mutation and the text after the last.
//
// # Goroutines
//
// Mutations and notification delivery belong to the goroutine driving the
// UI. Registration may happen from any goroutine.
package editor
