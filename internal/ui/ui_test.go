package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/dshills/emoted/internal/editor"
	"github.com/dshills/emoted/internal/engine/buffer"
	"github.com/dshills/emoted/internal/keymap"
	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/dshills/emoted/internal/plugin/emoji"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
	"github.com/rs/zerolog"
)

func newTestUI(t *testing.T, text string, opts Options) (*UI, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(40, 8)

	buf := buffer.NewBufferFromString(text)
	buf.SetCaret(buf.Len())
	buf.MarkSaved()
	opts.Logger = zerolog.Nop()
	return New(s, editor.New(buf), opts), s
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func typeString(u *UI, s string) {
	for _, r := range s {
		u.HandleEvent(runeKey(r))
	}
}

// row returns the text on screen row y with trailing spaces trimmed.
func row(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			continue
		}
		sb.WriteString(string(c.Runes))
		// Wide clusters cover the next cell too.
		if uniseg.StringWidth(string(c.Runes)) == 2 {
			x++
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

func TestTypingEditsBuffer(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})

	typeString(u, "helo")
	u.HandleEvent(key(tcell.KeyLeft))
	typeString(u, "l")
	u.HandleEvent(key(tcell.KeyEnd))
	u.HandleEvent(key(tcell.KeyEnter))
	typeString(u, "x")
	u.HandleEvent(key(tcell.KeyBackspace2))
	u.HandleEvent(key(tcell.KeyTab))

	if got, want := u.editor.Text(), "hello\n\t"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestDeleteForward(t *testing.T) {
	u, _ := newTestUI(t, "abc", Options{})
	u.HandleEvent(key(tcell.KeyHome))
	u.HandleEvent(key(tcell.KeyDelete))

	if got := u.editor.Text(); got != "bc" {
		t.Errorf("Text() = %q, want bc", got)
	}
}

func TestEmojiSubstitutionWhileTyping(t *testing.T) {
	u, s := newTestUI(t, "", Options{Title: "notes.txt"})
	if _, err := emoji.Initialize(u.editor, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	typeString(u, "hi :-) there")
	if got, want := u.editor.Text(), "hi \U0001F60A there"; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}

	u.Draw()
	if got := row(s, 1); got != "hi \U0001F60A there" {
		t.Errorf("body row = %q", got)
	}
	// The emoji is two columns wide.
	if x, y, visible := s.GetCursor(); x != 11 || y != 1 || !visible {
		t.Errorf("cursor = (%d, %d, %v), want (11, 1, true)", x, y, visible)
	}
	if got := row(s, 7); !strings.HasPrefix(got, "notes.txt [+]  Ln 1, Col 11") {
		t.Errorf("status row = %q", got)
	}
}

func TestToolbarAndButtons(t *testing.T) {
	u, s := newTestUI(t, "", Options{})
	if err := u.editor.RegisterButton("Sign", func() { _ = u.editor.InsertText("--jo") }); err != nil {
		t.Fatal(err)
	}

	u.Draw()
	if got := row(s, 0); got != "[1:Sign]" {
		t.Errorf("toolbar = %q, want [1:Sign]", got)
	}

	u.HandleEvent(tcell.NewEventKey(tcell.KeyRune, '1', tcell.ModAlt))
	if u.editor.Text() != "--jo" {
		t.Errorf("Text() = %q, want --jo", u.editor.Text())
	}

	u.HandleEvent(tcell.NewEventKey(tcell.KeyRune, '2', tcell.ModAlt))
	if u.Status() != "No button 2" {
		t.Errorf("Status() = %q", u.Status())
	}
}

func TestFunctionKeys(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})
	pressed := 0
	if err := u.editor.RegisterOnFunctionKeyEvent(api.F3, func() { pressed++ }); err != nil {
		t.Fatal(err)
	}

	u.HandleEvent(key(tcell.KeyF3))
	if pressed != 1 {
		t.Errorf("pressed = %d, want 1", pressed)
	}

	u.HandleEvent(key(tcell.KeyF5))
	if u.Status() != "F5 is not bound" {
		t.Errorf("Status() = %q", u.Status())
	}
}

func TestDuplicateKeyNotifies(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})
	_ = u.editor.RegisterOnFunctionKeyEvent(api.F3, func() {})
	_ = u.editor.RegisterOnFunctionKeyEvent(api.F3, func() {})

	if !strings.Contains(u.Status(), "F3") {
		t.Errorf("Status() = %q, want a message about F3", u.Status())
	}
}

func TestVerticalMovement(t *testing.T) {
	u, _ := newTestUI(t, "abc\nd\nxyz", Options{})
	u.editor.SetCaretPosition(2)

	u.HandleEvent(key(tcell.KeyDown))
	if got := u.editor.CaretPosition(); got != 5 {
		t.Errorf("after Down caret = %d, want 5 (end of short line)", got)
	}
	u.HandleEvent(key(tcell.KeyDown))
	if got := u.editor.CaretPosition(); got != 7 {
		t.Errorf("after second Down caret = %d, want 7", got)
	}
	u.HandleEvent(key(tcell.KeyDown))
	if got := u.editor.CaretPosition(); got != 7 {
		t.Errorf("Down on the last line moved the caret to %d", got)
	}
	u.HandleEvent(key(tcell.KeyUp))
	u.HandleEvent(key(tcell.KeyUp))
	if got := u.editor.CaretPosition(); got != 1 {
		t.Errorf("after Up Up caret = %d, want 1", got)
	}
}

func TestReadOnlyShowsError(t *testing.T) {
	u, _ := newTestUI(t, "x", Options{})
	u.editor.Buffer().SetReadOnly(true)

	typeString(u, "y")
	if u.editor.Text() != "x" {
		t.Errorf("Text() = %q, want x", u.editor.Text())
	}
	if u.Status() == "" {
		t.Error("Status() should report the read-only error")
	}
}

func TestSave(t *testing.T) {
	saves := 0
	u, _ := newTestUI(t, "", Options{Save: func() error {
		saves++
		return nil
	}})

	u.HandleEvent(key(tcell.KeyCtrlS))
	if saves != 1 || u.Status() != "Saved" {
		t.Errorf("saves = %d, Status() = %q", saves, u.Status())
	}
}

func TestSaveError(t *testing.T) {
	u, _ := newTestUI(t, "", Options{Save: func() error { return errors.New("disk full") }})

	u.HandleEvent(key(tcell.KeyCtrlS))
	if u.Status() != "Save failed: disk full" {
		t.Errorf("Status() = %q", u.Status())
	}
}

func TestSaveWithoutFile(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})
	u.HandleEvent(key(tcell.KeyCtrlS))
	if u.Status() != "No file to save to" {
		t.Errorf("Status() = %q", u.Status())
	}
}

func TestPrompt(t *testing.T) {
	u, s := newTestUI(t, "", Options{})

	s.InjectKey(tcell.KeyRune, 'o', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'n', tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	s.InjectKey(tcell.KeyBackspace2, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyRune, 'e', tcell.ModNone)
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	answer, ok := u.Prompt("Find")
	if !ok || answer != "one" {
		t.Errorf("Prompt() = (%q, %v), want (one, true)", answer, ok)
	}
}

func TestPromptCancel(t *testing.T) {
	u, s := newTestUI(t, "", Options{})

	s.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)

	if answer, ok := u.Prompt("Find"); ok || answer != "" {
		t.Errorf("Prompt() = (%q, %v), want cancelled", answer, ok)
	}
}

func TestPostedWorkWaitsForPrompt(t *testing.T) {
	u, s := newTestUI(t, "", Options{})

	ran := false
	u.Post(func() { ran = true })
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	if _, ok := u.Prompt("Find"); !ok {
		t.Fatal("Prompt() cancelled")
	}
	if ran {
		t.Fatal("posted work ran while the prompt was open")
	}
	u.runPosted()
	if !ran {
		t.Error("posted work did not run after the prompt closed")
	}
}

func TestRunQuitsWithConfirmation(t *testing.T) {
	u, s := newTestUI(t, "", Options{})

	ran := false
	u.Post(func() { ran = true })
	s.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	s.InjectKey(tcell.KeyCtrlQ, 0, tcell.ModNone)
	s.InjectKey(tcell.KeyCtrlQ, 0, tcell.ModNone)

	if err := u.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if u.editor.Text() != "x" {
		t.Errorf("Text() = %q, want x", u.editor.Text())
	}
	if !ran {
		t.Error("posted work did not run")
	}
}

func TestQuitArmIsReset(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})
	typeString(u, "x")

	u.HandleEvent(key(tcell.KeyCtrlQ))
	if u.quit {
		t.Fatal("first Ctrl-Q on a modified buffer should not quit")
	}
	typeString(u, "y")
	u.HandleEvent(key(tcell.KeyCtrlQ))
	if u.quit {
		t.Error("a key between Ctrl-Q presses should disarm quitting")
	}
	u.HandleEvent(key(tcell.KeyCtrlQ))
	if !u.quit {
		t.Error("second consecutive Ctrl-Q should quit")
	}
}

func TestScrollKeepsCaretVisible(t *testing.T) {
	text := strings.Repeat("line\n", 20) + "last"
	u, s := newTestUI(t, text, Options{})

	u.Draw()
	if got := row(s, 6); got != "last" {
		t.Errorf("bottom body row = %q, want last", got)
	}
	if _, y, _ := s.GetCursor(); y != 6 {
		t.Errorf("cursor row = %d, want 6", y)
	}
}

func TestKeymapBindings(t *testing.T) {
	km, err := keymap.Parse([]keymap.Entry{
		{Keys: "ctrl+d", Action: "insert", At: "line-start", Text: "# "},
		{Keys: "alt+shift+d", Action: "delete", At: "line-start", Text: "# "},
	})
	if err != nil {
		t.Fatal(err)
	}
	u, _ := newTestUI(t, "one\ntwo", Options{Keymap: km})

	u.HandleEvent(key(tcell.KeyCtrlD))
	if got := u.editor.Text(); got != "one\n# two" {
		t.Fatalf("after Ctrl-D Text() = %q", got)
	}

	u.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'D', tcell.ModAlt))
	if got := u.editor.Text(); got != "one\ntwo" {
		t.Errorf("after Alt-Shift-D Text() = %q", got)
	}

	// Unbound Alt letters are not typed.
	u.HandleEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt))
	if got := u.editor.Text(); got != "one\ntwo" {
		t.Errorf("after Alt-X Text() = %q", got)
	}
}

func TestKeymapEditNotifiesOnce(t *testing.T) {
	km, err := keymap.Parse([]keymap.Entry{{Keys: "ctrl+e", Action: "insert", Text: ":-)"}})
	if err != nil {
		t.Fatal(err)
	}
	u, _ := newTestUI(t, "", Options{Keymap: km})
	if _, err := emoji.Initialize(u.editor, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}

	u.HandleEvent(key(tcell.KeyCtrlE))
	if got := u.editor.Text(); got != "\U0001F60A" {
		t.Errorf("Text() = %q, want the emoji", got)
	}
}

func TestStatusShowsEncoding(t *testing.T) {
	u, s := newTestUI(t, "", Options{Title: "a.txt", Encoding: "UTF-16"})
	u.Draw()
	if got := row(s, 7); got != "a.txt  Ln 1, Col 1  UTF-16" {
		t.Errorf("status row = %q", got)
	}
}

func injectString(s tcell.SimulationScreen, text string) {
	for _, r := range text {
		s.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
	s.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
}

func TestSaveAsPromptsForPathAndEncoding(t *testing.T) {
	var gotPath, gotEnc string
	saves := 0
	u, s := newTestUI(t, "", Options{
		Save: func() error {
			saves++
			return nil
		},
		SaveAs: func(path, enc string) error {
			gotPath, gotEnc = path, enc
			return nil
		},
	})

	injectString(s, "notes/out.txt")
	injectString(s, "latin1")
	u.HandleEvent(key(tcell.KeyCtrlS))

	if gotPath != "notes/out.txt" || gotEnc != "latin1" {
		t.Fatalf("SaveAs(%q, %q), want (notes/out.txt, latin1)", gotPath, gotEnc)
	}
	if u.Status() != "Saved out.txt" {
		t.Errorf("Status() = %q, want Saved out.txt", u.Status())
	}

	u.HandleEvent(key(tcell.KeyLeft))
	u.Draw()
	if got := row(s, 7); got != "out.txt  Ln 1, Col 1  latin1" {
		t.Errorf("status row = %q", got)
	}

	// The document has a file now.
	u.HandleEvent(key(tcell.KeyCtrlS))
	if saves != 1 || u.Status() != "Saved" {
		t.Errorf("saves = %d, Status() = %q", saves, u.Status())
	}
}

func TestSaveAsKeepsEncodingWhenEmpty(t *testing.T) {
	var gotEnc string
	u, s := newTestUI(t, "", Options{
		Encoding: "UTF-16",
		SaveAs: func(_, enc string) error {
			gotEnc = enc
			return nil
		},
	})

	injectString(s, "a.txt")
	injectString(s, "")
	u.HandleEvent(key(tcell.KeyCtrlS))

	if gotEnc != "" {
		t.Errorf("encoding = %q, want empty", gotEnc)
	}
	if u.opts.Encoding != "UTF-16" {
		t.Errorf("Encoding = %q, want UTF-16", u.opts.Encoding)
	}
}

func TestSaveAsCancelled(t *testing.T) {
	called := false
	u, s := newTestUI(t, "", Options{SaveAs: func(string, string) error {
		called = true
		return nil
	}})

	s.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	u.HandleEvent(key(tcell.KeyCtrlS))

	if called || u.Status() != "Save cancelled" {
		t.Errorf("called = %v, Status() = %q", called, u.Status())
	}
	if u.opts.Title != "" {
		t.Errorf("Title = %q, want empty", u.opts.Title)
	}
}

func TestSaveAsError(t *testing.T) {
	u, s := newTestUI(t, "", Options{SaveAs: func(string, string) error {
		return errors.New("permission denied")
	}})

	injectString(s, "/etc/x")
	injectString(s, "")
	u.HandleEvent(key(tcell.KeyCtrlS))

	if u.Status() != "Save failed: permission denied" {
		t.Errorf("Status() = %q", u.Status())
	}
	if u.opts.Title != "" {
		t.Errorf("Title = %q after a failed save", u.opts.Title)
	}
}

func TestOpenPromptsForFile(t *testing.T) {
	var gotPath, gotEnc string
	u, s := newTestUI(t, "old", Options{
		Title:    "a.txt",
		Encoding: "UTF-8",
		Open: func(path, enc string) error {
			gotPath, gotEnc = path, enc
			return nil
		},
	})

	injectString(s, "docs/b.txt")
	injectString(s, "")
	u.HandleEvent(key(tcell.KeyCtrlO))

	if gotPath != "docs/b.txt" || gotEnc != "" {
		t.Fatalf("Open(%q, %q), want (docs/b.txt, \"\")", gotPath, gotEnc)
	}
	if u.Status() != "Opened b.txt" {
		t.Errorf("Status() = %q, want Opened b.txt", u.Status())
	}
	if u.opts.Title != "b.txt" || u.opts.Encoding != "UTF-8" {
		t.Errorf("document = (%q, %q), want (b.txt, UTF-8)", u.opts.Title, u.opts.Encoding)
	}
}

func TestOpenConfirmsUnsavedChanges(t *testing.T) {
	opened := 0
	u, s := newTestUI(t, "", Options{Open: func(string, string) error {
		opened++
		return nil
	}})
	typeString(u, "x")

	u.HandleEvent(key(tcell.KeyCtrlO))
	if opened != 0 {
		t.Fatal("Ctrl-O on a modified buffer opened without confirmation")
	}
	if want := "Unsaved changes. Press Ctrl-O again to open another file."; u.Status() != want {
		t.Errorf("Status() = %q, want %q", u.Status(), want)
	}

	injectString(s, "b.txt")
	injectString(s, "")
	u.HandleEvent(key(tcell.KeyCtrlO))
	if opened != 1 {
		t.Errorf("opened = %d after the second Ctrl-O, want 1", opened)
	}
}

func TestOpenError(t *testing.T) {
	u, s := newTestUI(t, "", Options{Title: "a.txt", Open: func(string, string) error {
		return errors.New("no such file")
	}})

	injectString(s, "b.txt")
	injectString(s, "")
	u.HandleEvent(key(tcell.KeyCtrlO))

	if u.Status() != "Open failed: no such file" {
		t.Errorf("Status() = %q", u.Status())
	}
	if u.opts.Title != "a.txt" {
		t.Errorf("Title = %q, want a.txt", u.opts.Title)
	}
}

func TestLoadReportsResult(t *testing.T) {
	var asked []string
	u, s := newTestUI(t, "", Options{Load: func(name string) (string, error) {
		asked = append(asked, name)
		if name == "missing" {
			return "", errors.New("plugin not found")
		}
		return "Loaded plugin Find", nil
	}})

	injectString(s, "find")
	u.HandleEvent(key(tcell.KeyCtrlP))
	if u.Status() != "Loaded plugin Find" {
		t.Errorf("Status() = %q", u.Status())
	}

	injectString(s, "missing")
	u.HandleEvent(key(tcell.KeyCtrlP))
	if u.Status() != "Load failed: plugin not found" {
		t.Errorf("Status() = %q", u.Status())
	}

	injectString(s, "  ")
	u.HandleEvent(key(tcell.KeyCtrlP))
	if u.Status() != "Load cancelled" {
		t.Errorf("Status() = %q", u.Status())
	}

	if len(asked) != 2 || asked[0] != "find" || asked[1] != "missing" {
		t.Errorf("Load called with %q", asked)
	}
}

func TestFileKeysWithoutHandlers(t *testing.T) {
	u, _ := newTestUI(t, "", Options{})

	u.HandleEvent(key(tcell.KeyCtrlO))
	if u.Status() != "Opening files is not available" {
		t.Errorf("Ctrl-O Status() = %q", u.Status())
	}
	u.HandleEvent(key(tcell.KeyCtrlP))
	if u.Status() != "Loading plugins is not available" {
		t.Errorf("Ctrl-P Status() = %q", u.Status())
	}
}
