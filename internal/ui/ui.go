// Package ui is the terminal frontend of emoted.
//
// The screen has three parts: a toolbar on the first row with the buttons
// plugins registered, the buffer, and a status line at the bottom that also
// hosts prompts. All editor work happens on the goroutine running Run;
// other goroutines hand work over with Post.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/emoted/internal/editor"
	"github.com/dshills/emoted/internal/keymap"
	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
)

// SaveFunc writes the buffer to its file.
type SaveFunc func() error

// FileFunc saves or opens path in the named encoding. An empty encoding
// means the current one.
type FileFunc func(path, encoding string) error

// LoadFunc loads a plugin by name or a script by path and describes what
// it loaded.
type LoadFunc func(name string) (string, error)

// Options configures a UI.
type Options struct {
	// Title names the document in the status line
	Title string

	// Save handles Ctrl-S; nil disables saving
	Save SaveFunc

	// SaveAs handles Ctrl-S while the document has no title
	SaveAs FileFunc

	// Open handles Ctrl-O; nil disables opening
	Open FileFunc

	// Load handles Ctrl-P; nil disables loading
	Load LoadFunc

	// Encoding is shown in the status line when set
	Encoding string

	// Keymap binds Ctrl and Alt letter keys to text edits
	Keymap *keymap.Keymap

	Logger zerolog.Logger
}

// UI drives an editor from a tcell screen.
type UI struct {
	screen tcell.Screen
	editor *editor.Editor
	opts   Options
	logger zerolog.Logger

	// status is the message shown until the next key press
	status string

	// armed is the key that must be pressed again to discard unsaved
	// changes (Ctrl-Q or Ctrl-O)
	armed tcell.Key
	quit  bool

	// top is the first buffer line shown
	top int

	// prompting is set while Prompt runs its own event loop
	prompting bool

	postMu sync.Mutex
	posted []func()
}

// New creates a UI on an initialized screen and installs it as the
// editor's notifier and prompter.
func New(screen tcell.Screen, ed *editor.Editor, opts Options) *UI {
	u := &UI{
		screen: screen,
		editor: ed,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "ui").Logger(),
	}
	ed.SetNotifier(u)
	ed.SetPrompter(u)
	return u
}

// NewTerminal creates and initializes a screen on the controlling terminal.
func NewTerminal() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnablePaste()
	return screen, nil
}

// Run draws and handles events until the user quits or the screen is
// finalized.
func (u *UI) Run() error {
	for !u.quit {
		u.Draw()
		ev := u.screen.PollEvent()
		if ev == nil {
			return nil
		}
		u.HandleEvent(ev)
		u.runPosted()
	}
	return nil
}

// Quit makes Run return after the current event.
func (u *UI) Quit() {
	u.quit = true
}

// Post schedules fn on the UI goroutine. It is safe to call from any
// goroutine. Work posted while a prompt is open waits until it closes.
func (u *UI) Post(fn func()) {
	u.postMu.Lock()
	u.posted = append(u.posted, fn)
	u.postMu.Unlock()

	// Wake the event loop. If the queue is full the work still runs after
	// the next event.
	if err := u.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		u.logger.Debug().Err(err).Msg("wake event dropped")
	}
}

func (u *UI) runPosted() {
	if u.prompting {
		return
	}
	u.postMu.Lock()
	fns := u.posted
	u.posted = nil
	u.postMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Notify shows msg on the status line.
func (u *UI) Notify(msg string) {
	u.status = msg
}

// Status returns the current status message.
func (u *UI) Status() string {
	return u.status
}

// HandleEvent applies one screen event.
func (u *UI) HandleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventKey:
		u.handleKey(ev)
	case *tcell.EventInterrupt:
		// Posted work runs after every event
	}
}

func (u *UI) handleKey(ev *tcell.EventKey) {
	if ev.Key() != u.armed {
		u.armed = 0
	}
	u.status = ""

	if key, ok := functionKey(ev.Key()); ok {
		if !u.editor.PressFunctionKey(key) {
			u.status = fmt.Sprintf("%s is not bound", key)
		}
		return
	}
	if i, ok := buttonIndex(ev); ok {
		if !u.editor.ActivateButton(i) {
			u.status = fmt.Sprintf("No button %d", i+1)
		}
		return
	}

	if c, ok := comboOf(ev); ok {
		if b, ok := u.opts.Keymap.Lookup(c); ok {
			var err error
			u.editor.Batch(func() { err = b.Apply(u.editor) })
			if err != nil {
				u.status = err.Error()
			}
			return
		}
	}

	var err error
	switch k := ev.Key(); {
	case k == tcell.KeyCtrlQ:
		u.requestQuit()
	case k == tcell.KeyCtrlS:
		u.save()
	case k == tcell.KeyCtrlO:
		u.open()
	case k == tcell.KeyCtrlP:
		u.load()
	case k == tcell.KeyRune && ev.Modifiers()&(tcell.ModAlt|tcell.ModCtrl) == 0:
		err = u.editor.TypeText(string(ev.Rune()))
	case k == tcell.KeyEnter:
		err = u.editor.TypeText("\n")
	case k == tcell.KeyTab:
		err = u.editor.TypeText("\t")
	case isBackspace(k):
		err = u.editor.Backspace()
	case k == tcell.KeyDelete:
		err = u.editor.DeleteForward()
	case k == tcell.KeyLeft:
		u.editor.SetCaretPosition(u.editor.CaretPosition() - 1)
	case k == tcell.KeyRight:
		u.editor.SetCaretPosition(u.editor.CaretPosition() + 1)
	case k == tcell.KeyUp:
		u.moveVertical(-1)
	case k == tcell.KeyDown:
		u.moveVertical(1)
	case k == tcell.KeyHome:
		u.moveLineEdge(false)
	case k == tcell.KeyEnd:
		u.moveLineEdge(true)
	}
	if err != nil {
		u.status = err.Error()
	}
}

func (u *UI) requestQuit() {
	if u.confirmDiscard(tcell.KeyCtrlQ, "quit") {
		u.quit = true
	}
}

// confirmDiscard reports whether the buffer may be dropped. A modified
// buffer needs k twice in a row.
func (u *UI) confirmDiscard(k tcell.Key, action string) bool {
	if !u.editor.Buffer().Modified() || u.armed == k {
		u.armed = 0
		return true
	}
	u.armed = k
	u.status = fmt.Sprintf("Unsaved changes. Press %s again to %s.", keyName(k), action)
	return false
}

func (u *UI) save() {
	if u.opts.Title == "" && u.opts.SaveAs != nil {
		u.saveAs()
		return
	}
	if u.opts.Save == nil {
		u.status = "No file to save to"
		return
	}
	if err := u.opts.Save(); err != nil {
		u.logger.Warn().Err(err).Msg("save failed")
		u.status = "Save failed: " + err.Error()
		return
	}
	u.status = "Saved"
}

func (u *UI) saveAs() {
	path, enc, ok := u.promptFile("Save as")
	if !ok {
		u.status = "Save cancelled"
		return
	}
	if err := u.opts.SaveAs(path, enc); err != nil {
		u.logger.Warn().Err(err).Str("path", path).Msg("save as failed")
		u.status = "Save failed: " + err.Error()
		return
	}
	u.SetDocument(filepath.Base(path), enc)
	u.status = "Saved " + u.opts.Title
}

func (u *UI) open() {
	if u.opts.Open == nil {
		u.status = "Opening files is not available"
		return
	}
	if !u.confirmDiscard(tcell.KeyCtrlO, "open another file") {
		return
	}
	path, enc, ok := u.promptFile("Open")
	if !ok {
		u.status = "Open cancelled"
		return
	}
	if err := u.opts.Open(path, enc); err != nil {
		u.logger.Warn().Err(err).Str("path", path).Msg("open failed")
		u.status = "Open failed: " + err.Error()
		return
	}
	u.top = 0
	u.SetDocument(filepath.Base(path), enc)
	u.status = "Opened " + u.opts.Title
}

// promptFile asks for a path and then an encoding. An empty encoding
// keeps the current one.
func (u *UI) promptFile(action string) (path, enc string, ok bool) {
	path, ok = u.Prompt(action + ": path")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return "", "", false
	}
	enc, ok = u.Prompt(action + ": encoding (empty keeps " + u.encodingName() + ")")
	if !ok {
		return "", "", false
	}
	return path, strings.TrimSpace(enc), true
}

func (u *UI) encodingName() string {
	if u.opts.Encoding == "" {
		return "UTF-8"
	}
	return u.opts.Encoding
}

func (u *UI) load() {
	if u.opts.Load == nil {
		u.status = "Loading plugins is not available"
		return
	}
	name, ok := u.Prompt("Load plugin or script")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		u.status = "Load cancelled"
		return
	}
	msg, err := u.opts.Load(name)
	if err != nil {
		u.logger.Warn().Err(err).Str("name", name).Msg("load failed")
		u.status = "Load failed: " + err.Error()
		return
	}
	u.status = msg
}

// SetDocument updates the title and encoding shown in the status line. An
// empty encoding keeps the current one.
func (u *UI) SetDocument(title, encoding string) {
	u.opts.Title = title
	if encoding != "" {
		u.opts.Encoding = encoding
	}
}

func (u *UI) moveVertical(delta int) {
	lines := splitLines(u.editor.Text())
	caret := u.editor.CaretPosition()
	i := lineOf(lines, caret)
	j := i + delta
	if j < 0 || j >= len(lines) {
		return
	}
	col := columnOf(lines[i], caret)
	u.editor.SetCaretPosition(offsetAt(lines[j], col))
}

func (u *UI) moveLineEdge(end bool) {
	lines := splitLines(u.editor.Text())
	l := lines[lineOf(lines, u.editor.CaretPosition())]
	if end {
		u.editor.SetCaretPosition(l.end())
	} else {
		u.editor.SetCaretPosition(l.start)
	}
}

// Prompt asks for a line of text on the status line. Enter accepts, Esc
// and Ctrl-C cancel. It runs its own event loop, so it is only valid on the
// UI goroutine.
func (u *UI) Prompt(prompt string) (string, bool) {
	u.prompting = true
	defer func() { u.prompting = false }()

	var input []rune
	for {
		u.Draw()
		u.drawPrompt(prompt, string(input))
		u.screen.Show()

		ev := u.screen.PollEvent()
		if ev == nil {
			return "", false
		}

		switch ev := ev.(type) {
		case *tcell.EventResize:
			u.screen.Sync()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEnter:
				return string(input), true
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
				return "", false
			case isBackspace(ev.Key()):
				if len(input) > 0 {
					input = input[:len(input)-1]
				}
			case ev.Key() == tcell.KeyRune:
				input = append(input, ev.Rune())
			}
		}
	}
}
