package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/emoted/internal/engine/buffer"
	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(msg string)
}

// Prompter asks the user for a line of text.
type Prompter interface {
	Prompt(prompt string) (answer string, ok bool)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string)

// Notify calls f(msg).
func (f NotifyFunc) Notify(msg string) { f(msg) }

// Button is a toolbar entry registered by a plugin.
type Button struct {
	Label string
	Owner string

	cb api.EventHandler
}

type handlerEntry struct {
	owner string
	h     api.TextModificationHandler
}

type keyEntry struct {
	owner string
	cb    api.EventHandler
}

// Editor implements api.API over a buffer.
type Editor struct {
	mu sync.RWMutex

	buf      *buffer.Buffer
	locale   language.Tag
	logger   zerolog.Logger
	notifier Notifier
	prompter Prompter

	handlers []handlerEntry
	buttons  []Button
	keys     map[api.FunctionKey]keyEntry

	// Notification state, owned by the UI goroutine.
	depth       int
	pending     bool
	pendingPrev string
	dispatching bool
}

// Compile-time interface checks.
var (
	_ api.API     = (*Editor)(nil)
	_ api.Batcher = (*Editor)(nil)
	_ api.Scoper  = (*Editor)(nil)
)

// New creates an editor over buf. A nil buf starts with an empty buffer.
func New(buf *buffer.Buffer, opts ...Option) *Editor {
	if buf == nil {
		buf = buffer.NewBuffer()
	}
	e := &Editor{
		buf:    buf,
		locale: language.AmericanEnglish,
		logger: zerolog.Nop(),
		keys:   make(map[api.FunctionKey]keyEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Buffer returns the current buffer.
func (e *Editor) Buffer() *buffer.Buffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf
}

// ReadOnly reports whether the buffer rejects edits.
func (e *Editor) ReadOnly() bool {
	return e.Buffer().ReadOnly()
}

// Reset swaps in a new buffer, e.g. after opening a file.
// Loading is not an edit, so no handler is notified.
func (e *Editor) Reset(buf *buffer.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf = buf
}

// SetNotifier replaces the notifier.
func (e *Editor) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notifier = n
}

// SetPrompter replaces the prompter.
func (e *Editor) SetPrompter(p Prompter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompter = p
}

// Notify forwards msg to the notifier, if any.
func (e *Editor) Notify(msg string) {
	e.mu.RLock()
	n := e.notifier
	e.mu.RUnlock()

	if n != nil {
		n.Notify(msg)
	}
}

// Batch runs fn and delivers a single notification for all the edits it
// made once the outermost Batch returns.
func (e *Editor) Batch(fn func()) {
	e.depth++
	defer func() {
		e.depth--
		if e.depth > 0 || !e.pending {
			return
		}
		e.pending = false
		e.dispatch(e.pendingPrev, e.Buffer().Text())
	}()
	fn()
}

// edit runs a buffer mutation and announces the change.
func (e *Editor) edit(fn func(b *buffer.Buffer) error) error {
	b := e.Buffer()
	rev := b.RevisionID()

	var prev string
	if !e.dispatching {
		prev = b.Text()
	}

	if err := fn(b); err != nil {
		return translateError(err)
	}
	if b.RevisionID() == rev {
		return nil
	}

	switch {
	case e.dispatching:
		// Picked up by the next round of dispatch.
	case e.depth > 0:
		if !e.pending {
			e.pending = true
			e.pendingPrev = prev
		}
	default:
		e.dispatch(prev, b.Text())
	}
	return nil
}

// MaxRounds bounds how many notification rounds one change can cause.
// Handlers that edit the text start another round; a handler that edits
// on every round is cut off here.
const MaxRounds = 8

// dispatch calls every handler with prev and current. When handlers edit
// the text, every handler is called again with the text the round started
// from and the text after it, until a round leaves the text unchanged.
func (e *Editor) dispatch(prev, current string) {
	e.dispatching = true
	defer func() { e.dispatching = false }()

	for round := 0; prev != current; round++ {
		if round == MaxRounds {
			e.logger.Warn().Int("rounds", MaxRounds).Msg("text modification handlers keep editing; notifications stopped")
			return
		}

		e.mu.RLock()
		handlers := make([]handlerEntry, len(e.handlers))
		copy(handlers, e.handlers)
		e.mu.RUnlock()

		for _, entry := range handlers {
			e.safeNotify(entry, prev, current)
		}
		prev, current = current, e.Buffer().Text()
	}
}

func (e *Editor) safeNotify(entry handlerEntry, prev, current string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Str("owner", entry.owner).
				Interface("panic", r).
				Msg("text modification handler panicked")
		}
	}()
	entry.h.OnTextModified(prev, current)
}

// safeRun runs a plugin callback inside Batch, recovering panics.
func (e *Editor) safeRun(what, owner string, cb api.EventHandler) {
	e.Batch(func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error().
					Str("owner", owner).
					Str("callback", what).
					Interface("panic", r).
					Msg("plugin callback panicked")
			}
		}()
		cb()
	})
}

// translateError maps buffer errors onto the API's error values.
func translateError(err error) error {
	switch {
	case errors.Is(err, buffer.ErrReadOnly):
		return api.ErrReadOnly
	case errors.Is(err, buffer.ErrEmptyPattern):
		return api.ErrEmptyPattern
	default:
		return err
	}
}

// RegisterButton adds a toolbar button.
func (e *Editor) RegisterButton(label string, cb api.EventHandler) error {
	return e.registerButton("", label, cb)
}

func (e *Editor) registerButton(owner, label string, cb api.EventHandler) error {
	if cb == nil {
		return api.ErrNilCallback
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buttons = append(e.buttons, Button{Label: label, Owner: owner, cb: cb})
	return nil
}

// RegisterOnFunctionKeyEvent binds cb to key. A key can be bound only once;
// the user is told when a plugin asks for a key that is taken.
func (e *Editor) RegisterOnFunctionKeyEvent(key api.FunctionKey, cb api.EventHandler) error {
	return e.registerKey("", key, cb)
}

func (e *Editor) registerKey(owner string, key api.FunctionKey, cb api.EventHandler) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %d", api.ErrInvalidKey, int(key))
	}
	if cb == nil {
		return api.ErrNilCallback
	}

	e.mu.Lock()
	_, taken := e.keys[key]
	if !taken {
		e.keys[key] = keyEntry{owner: owner, cb: cb}
	}
	e.mu.Unlock()

	if taken {
		e.Notify(fmt.Sprintf("Function key %s is already in use", key))
		return fmt.Errorf("%w: %s", api.ErrDuplicateKey, key)
	}
	return nil
}

// RegisterTextModificationHandler adds h to the notification list.
func (e *Editor) RegisterTextModificationHandler(h api.TextModificationHandler) error {
	return e.registerHandler("", h)
}

func (e *Editor) registerHandler(owner string, h api.TextModificationHandler) error {
	if h == nil {
		return api.ErrNilCallback
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handlerEntry{owner: owner, h: h})
	return nil
}

// Scope returns an API whose registrations are tagged with owner.
func (e *Editor) Scope(owner string) api.API {
	return &scoped{Editor: e, owner: owner}
}

// RemoveOwner drops every registration tagged with owner.
func (e *Editor) RemoveOwner(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	handlers := e.handlers[:0]
	for _, entry := range e.handlers {
		if entry.owner != owner {
			handlers = append(handlers, entry)
		}
	}
	clear(e.handlers[len(handlers):])
	e.handlers = handlers

	buttons := e.buttons[:0]
	for _, b := range e.buttons {
		if b.Owner != owner {
			buttons = append(buttons, b)
		}
	}
	clear(e.buttons[len(buttons):])
	e.buttons = buttons

	for key, entry := range e.keys {
		if entry.owner == owner {
			delete(e.keys, key)
		}
	}
}

// HandlerCount returns the number of registered text handlers.
func (e *Editor) HandlerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}

// Buttons returns the toolbar buttons in registration order.
func (e *Editor) Buttons() []Button {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Button, len(e.buttons))
	copy(out, e.buttons)
	return out
}

// ActivateButton runs the callback of the i-th button.
// It returns false when there is no such button.
func (e *Editor) ActivateButton(i int) bool {
	e.mu.RLock()
	if i < 0 || i >= len(e.buttons) {
		e.mu.RUnlock()
		return false
	}
	b := e.buttons[i]
	e.mu.RUnlock()

	e.safeRun("button "+b.Label, b.Owner, b.cb)
	return true
}

// PressFunctionKey runs the callback bound to key.
// It returns false when the key is unbound.
func (e *Editor) PressFunctionKey(key api.FunctionKey) bool {
	e.mu.RLock()
	entry, ok := e.keys[key]
	e.mu.RUnlock()
	if !ok {
		return false
	}

	e.safeRun(key.String(), entry.owner, entry.cb)
	return true
}

// PromptUser asks the prompter for an answer.
func (e *Editor) PromptUser(prompt string) (string, bool) {
	e.mu.RLock()
	p := e.prompter
	e.mu.RUnlock()

	if p == nil {
		return "", false
	}
	return p.Prompt(prompt)
}

// Locale returns the editor locale.
func (e *Editor) Locale() language.Tag {
	return e.locale
}

// CaretPosition returns the caret offset.
func (e *Editor) CaretPosition() int {
	return e.Buffer().Caret()
}

// SetCaretPosition moves the caret, clamped to the buffer.
func (e *Editor) SetCaretPosition(pos int) {
	e.Buffer().SetCaret(pos)
}

// Text returns the buffer content.
func (e *Editor) Text() string {
	return e.Buffer().Text()
}

// TextRange returns [start, end) clamped to the buffer.
func (e *Editor) TextRange(start, end int) string {
	return e.Buffer().TextRange(start, end)
}

// TextLength returns the buffer length in runes.
func (e *Editor) TextLength() int {
	return e.Buffer().Len()
}

// InsertText inserts text at the caret.
func (e *Editor) InsertText(text string) error {
	return e.edit(func(b *buffer.Buffer) error {
		_, err := b.Insert(b.Caret(), text)
		return err
	})
}

// InsertTextAt inserts text at idx.
func (e *Editor) InsertTextAt(idx int, text string) error {
	return e.edit(func(b *buffer.Buffer) error {
		if _, err := b.Insert(idx, text); err != nil {
			return fmt.Errorf("insert at %d: %w", idx, err)
		}
		return nil
	})
}

// DeleteText removes [start, end) clamped to the buffer. Nothing happens
// when start > end, start is past the last rune or end <= 0.
func (e *Editor) DeleteText(start, end int) (string, bool) {
	var removed string
	var ok bool
	err := e.edit(func(b *buffer.Buffer) error {
		n := b.Len()
		if start > end || start >= n || end <= 0 {
			return nil
		}
		var err error
		removed, err = b.Delete(max(start, 0), min(end, n))
		ok = err == nil
		return err
	})
	if err != nil {
		e.logger.Debug().Err(err).Msg("delete failed")
		return "", false
	}
	return removed, ok
}

// DeleteBeforeCaret removes text if it is exactly what precedes the caret.
func (e *Editor) DeleteBeforeCaret(text string) (string, bool) {
	n := len([]rune(text))
	if n == 0 {
		return "", false
	}

	var ok bool
	err := e.edit(func(b *buffer.Buffer) error {
		caret := b.Caret()
		if caret < n || b.TextRange(caret-n, caret) != text {
			return nil
		}
		_, err := b.Delete(caret-n, caret)
		ok = err == nil
		return err
	})
	if err != nil {
		e.logger.Debug().Err(err).Msg("delete before caret failed")
	}
	if !ok {
		return "", false
	}
	return text, true
}

// ReplaceText replaces every occurrence of find and returns the count.
func (e *Editor) ReplaceText(find, replace string) (int, error) {
	var count int
	err := e.edit(func(b *buffer.Buffer) error {
		var err error
		count, err = b.ReplaceAll(find, replace)
		return err
	})
	return count, err
}

// HighlightText selects [start, end) clamped to the buffer.
func (e *Editor) HighlightText(start, end int) {
	e.Buffer().Select(start, end)
}

// Backspace deletes the rune before the caret, or the selection.
func (e *Editor) Backspace() error {
	return e.edit(func(b *buffer.Buffer) error {
		if s, end := b.Selection(); s < end {
			_, err := b.Delete(s, end)
			return err
		}
		caret := b.Caret()
		if caret == 0 {
			return nil
		}
		_, err := b.Delete(caret-1, caret)
		return err
	})
}

// DeleteForward deletes the rune after the caret, or the selection.
func (e *Editor) DeleteForward() error {
	return e.edit(func(b *buffer.Buffer) error {
		if s, end := b.Selection(); s < end {
			_, err := b.Delete(s, end)
			return err
		}
		caret := b.Caret()
		if caret >= b.Len() {
			return nil
		}
		_, err := b.Delete(caret, caret+1)
		return err
	})
}

// TypeText replaces the selection, if any, with text typed by the user.
func (e *Editor) TypeText(text string) error {
	return e.edit(func(b *buffer.Buffer) error {
		if s, end := b.Selection(); s < end {
			if _, err := b.Delete(s, end); err != nil {
				return err
			}
		}
		_, err := b.Insert(b.Caret(), text)
		return err
	})
}

// scoped tags registrations with an owner.
type scoped struct {
	*Editor
	owner string
}

func (s *scoped) RegisterButton(label string, cb api.EventHandler) error {
	return s.registerButton(s.owner, label, cb)
}

func (s *scoped) RegisterOnFunctionKeyEvent(key api.FunctionKey, cb api.EventHandler) error {
	return s.registerKey(s.owner, key, cb)
}

func (s *scoped) RegisterTextModificationHandler(h api.TextModificationHandler) error {
	return s.registerHandler(s.owner, h)
}
