package api

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/text/language"
)

// fakeAPI implements API over a plain string for testing.
type fakeAPI struct {
	text      string
	caret     int
	selStart  int
	selEnd    int
	readOnly  bool
	answer    string
	answerOK  bool
	handlers  []TextModificationHandler
	buttons   map[string]EventHandler
	keys      map[FunctionKey]EventHandler
	replaceCt int
}

func newFakeAPI(text string) *fakeAPI {
	return &fakeAPI{
		text:    text,
		buttons: make(map[string]EventHandler),
		keys:    make(map[FunctionKey]EventHandler),
	}
}

func (f *fakeAPI) RegisterButton(label string, cb EventHandler) error {
	f.buttons[label] = cb
	return nil
}

func (f *fakeAPI) RegisterOnFunctionKeyEvent(key FunctionKey, cb EventHandler) error {
	if _, ok := f.keys[key]; ok {
		return ErrDuplicateKey
	}
	f.keys[key] = cb
	return nil
}

func (f *fakeAPI) RegisterTextModificationHandler(h TextModificationHandler) error {
	f.handlers = append(f.handlers, h)
	return nil
}

func (f *fakeAPI) PromptUser(string) (string, bool) { return f.answer, f.answerOK }
func (f *fakeAPI) Locale() language.Tag             { return language.German }
func (f *fakeAPI) CaretPosition() int               { return f.caret }
func (f *fakeAPI) SetCaretPosition(pos int)         { f.caret = pos }
func (f *fakeAPI) Text() string                     { return f.text }
func (f *fakeAPI) TextLength() int                  { return len(f.text) }

func (f *fakeAPI) TextRange(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(f.text) {
		end = len(f.text)
	}
	if start >= end {
		return ""
	}
	return f.text[start:end]
}

func (f *fakeAPI) InsertText(text string) error {
	return f.InsertTextAt(f.caret, text)
}

func (f *fakeAPI) InsertTextAt(idx int, text string) error {
	if f.readOnly {
		return ErrReadOnly
	}
	f.text = f.text[:idx] + text + f.text[idx:]
	return nil
}

func (f *fakeAPI) DeleteText(start, end int) (string, bool) {
	if start > end || start >= len(f.text) || end <= 0 {
		return "", false
	}
	removed := f.text[start:end]
	f.text = f.text[:start] + f.text[end:]
	return removed, true
}

func (f *fakeAPI) DeleteBeforeCaret(text string) (string, bool) {
	if !strings.HasSuffix(f.text[:f.caret], text) {
		return "", false
	}
	start := f.caret - len(text)
	f.text = f.text[:start] + f.text[f.caret:]
	f.caret = start
	return text, true
}

func (f *fakeAPI) ReplaceText(find, replace string) (int, error) {
	f.replaceCt++
	if f.readOnly {
		return 0, ErrReadOnly
	}
	n := strings.Count(f.text, find)
	f.text = strings.ReplaceAll(f.text, find, replace)
	return n, nil
}

func (f *fakeAPI) HighlightText(start, end int) {
	f.selStart, f.selEnd = start, end
}

// directInvoker runs Lua callbacks on the given state without locking.
type directInvoker struct {
	L         *lua.LState
	suspended *int
}

func (d directInvoker) Invoke(fn func(L *lua.LState) error) error {
	return fn(d.L)
}

func (d directInvoker) Suspend(fn func()) {
	if d.suspended != nil {
		*d.suspended++
	}
	fn()
}

func setupEditorModuleTest(t *testing.T, host *fakeAPI) *lua.LState {
	t.Helper()

	L := lua.NewState()
	t.Cleanup(func() { L.Close() })

	mod := NewEditorModule("test", host, directInvoker{L: L}, zerolog.Nop())
	if mod.Name() != "api" {
		t.Fatalf("Name() = %q, want api", mod.Name())
	}
	if err := mod.Register(L); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return L
}

func TestEditorModuleHandlerTable(t *testing.T) {
	host := newFakeAPI("hello :-)")
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`
		local EmojiHandler = {}
		EmojiHandler.__index = EmojiHandler

		function EmojiHandler:onTextModified(prev, current)
			self.seen = current
			api.replaceText(":-)", "\240\159\152\138")
		end

		handler = setmetatable({}, EmojiHandler)
		api.registerTextModificationHandler(handler)
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if len(host.handlers) != 1 {
		t.Fatalf("registered %d handlers, want 1", len(host.handlers))
	}

	host.handlers[0].OnTextModified("hello :-", "hello :-)")

	if host.text != "hello \U0001F60A" {
		t.Errorf("text = %q, want emoji substituted", host.text)
	}
	seen := L.GetField(L.GetGlobal("handler"), "seen")
	if seen.String() != "hello :-)" {
		t.Errorf("handler saw %q, want current text", seen.String())
	}
}

func TestEditorModuleHandlerFunction(t *testing.T) {
	host := newFakeAPI("")
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`
		calls = 0
		api.registerTextModificationHandler(function(prev, current)
			calls = calls + 1
			last_prev = prev
		end)
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	host.handlers[0].OnTextModified("x", "xy")
	host.handlers[0].OnTextModified("xy", "xyz")

	if n := L.GetGlobal("calls"); n.String() != "2" {
		t.Errorf("calls = %s, want 2", n)
	}
	if p := L.GetGlobal("last_prev"); p.String() != "xy" {
		t.Errorf("last_prev = %q, want xy", p.String())
	}
}

func TestEditorModuleHandlerErrorIsContained(t *testing.T) {
	host := newFakeAPI(":-)")
	host.readOnly = true
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`
		api.registerTextModificationHandler(function(prev, current)
			api.replaceText(":-)", "x")
		end)
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	// The raised Lua error must be logged, not panic into the caller
	host.handlers[0].OnTextModified("", ":-)")

	if host.replaceCt != 1 {
		t.Errorf("replaceText calls = %d, want 1", host.replaceCt)
	}
	if host.text != ":-)" {
		t.Errorf("text = %q, read-only text changed", host.text)
	}
}

func TestEditorModuleRegisterInvalidHandler(t *testing.T) {
	L := setupEditorModuleTest(t, newFakeAPI(""))

	if err := L.DoString(`api.registerTextModificationHandler(42)`); err == nil {
		t.Error("registering a number should fail")
	}
	if err := L.DoString(`api.registerTextModificationHandler({})`); err == nil {
		t.Error("registering a table without onTextModified should fail")
	}
}

func TestEditorModuleButtonsAndKeys(t *testing.T) {
	host := newFakeAPI("")
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`
		api.registerButton("Sign", function() api.insertText("signed") end)
		api.registerOnFunctionKeyEvent("F5", function() api.insertText(0, ">") end)
		api.registerOnFunctionKeyEvent(6, function() end)
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	host.buttons["Sign"]()
	host.keys[F5]()

	if host.text != ">signed" {
		t.Errorf("text = %q, want %q", host.text, ">signed")
	}
	if _, ok := host.keys[F6]; !ok {
		t.Error("numeric key registration missing")
	}

	if err := L.DoString(`api.registerOnFunctionKeyEvent("F5", function() end)`); err == nil {
		t.Error("duplicate key should raise")
	}
	if err := L.DoString(`api.registerOnFunctionKeyEvent("F13", function() end)`); err == nil {
		t.Error("invalid key should raise")
	}
}

func TestEditorModuleTextFunctions(t *testing.T) {
	host := newFakeAPI("hello world")
	host.caret = 5
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`
		full = api.getText()
		part = api.getText(0, 5)
		len = api.getTextLength()
		caret = api.getCaretPosition()
		locale = api.getLocale()
		removed = api.deleteText("hello")
		missing = api.deleteText("zzz")
		api.setCaretPosition(3)
		api.highlightText(1, 4)
		count = api.replaceText("o", "0")
		cut = api.deleteText(0, 1)
	`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	checks := map[string]string{
		"full":    "hello world",
		"part":    "hello",
		"len":     "11",
		"caret":   "5",
		"locale":  "de",
		"removed": "hello",
		"missing": "nil",
		"count":   "1",
		"cut":     " ",
	}
	for name, want := range checks {
		if got := L.GetGlobal(name).String(); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if host.text != "w0rld" {
		t.Errorf("text = %q, want %q", host.text, "w0rld")
	}
	if host.selStart != 1 || host.selEnd != 4 {
		t.Errorf("selection = (%d, %d), want (1, 4)", host.selStart, host.selEnd)
	}
}

func TestEditorModulePromptUserSuspendsDeadline(t *testing.T) {
	host := newFakeAPI("")
	host.answer, host.answerOK = "needle", true

	L := lua.NewState()
	defer L.Close()
	suspended := 0
	mod := NewEditorModule("test", host, directInvoker{L: L, suspended: &suspended}, zerolog.Nop())
	if err := mod.Register(L); err != nil {
		t.Fatal(err)
	}

	if err := L.DoString(`answer = api.promptUser("find?")`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if L.GetGlobal("answer").String() != "needle" {
		t.Errorf("answer = %q, want needle", L.GetGlobal("answer").String())
	}
	if suspended != 1 {
		t.Errorf("Suspend called %d times, want 1", suspended)
	}

	host.answerOK = false
	if err := L.DoString(`answer = api.promptUser("find?")`); err != nil {
		t.Fatal(err)
	}
	if L.GetGlobal("answer") != lua.LNil {
		t.Errorf("cancelled prompt = %v, want nil", L.GetGlobal("answer"))
	}
}

func TestEditorModuleReplaceTextError(t *testing.T) {
	host := newFakeAPI(":-)")
	host.readOnly = true
	L := setupEditorModuleTest(t, host)

	err := L.DoString(`api.replaceText(":-)", "x")`)
	if err == nil {
		t.Fatal("replaceText on read-only host should raise")
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		t.Errorf("error type = %T, want *lua.ApiError", err)
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error = %v, want read-only mention", err)
	}
}
