package api

import (
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// EditorModule installs the global "api" table, the Lua face of API.
type EditorModule struct {
	owner  string
	host   API
	inv    Invoker
	logger zerolog.Logger
}

// NewEditorModule creates the editor module for the script named owner.
func NewEditorModule(owner string, host API, inv Invoker, logger zerolog.Logger) *EditorModule {
	return &EditorModule{
		owner:  owner,
		host:   host,
		inv:    inv,
		logger: logger.With().Str("script", owner).Logger(),
	}
}

// Name returns the module name.
func (m *EditorModule) Name() string {
	return "api"
}

// Register registers the module into the Lua state.
func (m *EditorModule) Register(L *lua.LState) error {
	mod := L.NewTable()

	L.SetField(mod, "registerTextModificationHandler", L.NewFunction(m.registerTextModificationHandler))
	L.SetField(mod, "registerButton", L.NewFunction(m.registerButton))
	L.SetField(mod, "registerOnFunctionKeyEvent", L.NewFunction(m.registerOnFunctionKeyEvent))
	L.SetField(mod, "promptUser", L.NewFunction(m.promptUser))
	L.SetField(mod, "getLocale", L.NewFunction(m.getLocale))
	L.SetField(mod, "getCaretPosition", L.NewFunction(m.getCaretPosition))
	L.SetField(mod, "setCaretPosition", L.NewFunction(m.setCaretPosition))
	L.SetField(mod, "getText", L.NewFunction(m.getText))
	L.SetField(mod, "getTextLength", L.NewFunction(m.getTextLength))
	L.SetField(mod, "insertText", L.NewFunction(m.insertText))
	L.SetField(mod, "deleteText", L.NewFunction(m.deleteText))
	L.SetField(mod, "replaceText", L.NewFunction(m.replaceText))
	L.SetField(mod, "highlightText", L.NewFunction(m.highlightText))

	L.SetGlobal(m.Name(), mod)
	return nil
}

// luaTextHandler forwards text modifications to a Lua callback.
type luaTextHandler struct {
	m    *EditorModule
	call func(prev, current string) error
}

func (h *luaTextHandler) OnTextModified(prev, current string) {
	if err := h.call(prev, current); err != nil {
		h.m.logger.Warn().Err(err).Msg("text modification handler failed")
	}
}

// registerTextModificationHandler(handler)
// handler is a function(prev, current) or a table with an
// onTextModified(self, prev, current) method.
func (m *EditorModule) registerTextModificationHandler(L *lua.LState) int {
	var call func(prev, current string) error

	switch h := L.CheckAny(1).(type) {
	case *lua.LFunction:
		call = func(prev, current string) error {
			return m.inv.Invoke(func(L *lua.LState) error {
				return L.CallByParam(lua.P{Fn: h, NRet: 0, Protect: true},
					lua.LString(prev), lua.LString(current))
			})
		}
	case *lua.LTable:
		if L.GetField(h, "onTextModified").Type() != lua.LTFunction {
			L.ArgError(1, "handler table must define onTextModified")
			return 0
		}
		// Resolved per call so reassigning the method takes effect
		call = func(prev, current string) error {
			return m.inv.Invoke(func(L *lua.LState) error {
				fn := L.GetField(h, "onTextModified")
				return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
					h, lua.LString(prev), lua.LString(current))
			})
		}
	default:
		L.ArgError(1, "expected function or table")
		return 0
	}

	if err := m.host.RegisterTextModificationHandler(&luaTextHandler{m: m, call: call}); err != nil {
		L.RaiseError("registerTextModificationHandler: %v", err)
	}
	return 0
}

// eventHandler wraps a Lua function as an EventHandler.
func (m *EditorModule) eventHandler(fn *lua.LFunction, what string) EventHandler {
	return func() {
		err := m.inv.Invoke(func(L *lua.LState) error {
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
		})
		if err != nil {
			m.logger.Warn().Err(err).Str("callback", what).Msg("callback failed")
		}
	}
}

// registerButton(label, fn)
func (m *EditorModule) registerButton(L *lua.LState) int {
	label := L.CheckString(1)
	fn := L.CheckFunction(2)

	if err := m.host.RegisterButton(label, m.eventHandler(fn, "button "+label)); err != nil {
		L.RaiseError("registerButton: %v", err)
	}
	return 0
}

// registerOnFunctionKeyEvent(key, fn)
// key is "F1".."F12" or a number 1..12.
func (m *EditorModule) registerOnFunctionKeyEvent(L *lua.LState) int {
	var key FunctionKey
	switch v := L.CheckAny(1).(type) {
	case lua.LNumber:
		key = FunctionKey(int(v))
		if !key.Valid() {
			L.ArgError(1, "function key must be 1..12")
			return 0
		}
	case lua.LString:
		k, err := ParseFunctionKey(string(v))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		key = k
	default:
		L.ArgError(1, "expected key name or number")
		return 0
	}
	fn := L.CheckFunction(2)

	if err := m.host.RegisterOnFunctionKeyEvent(key, m.eventHandler(fn, key.String())); err != nil {
		L.RaiseError("registerOnFunctionKeyEvent: %v", err)
	}
	return 0
}

// promptUser(prompt) -> string|nil
func (m *EditorModule) promptUser(L *lua.LState) int {
	prompt := L.CheckString(1)

	var answer string
	var ok bool
	m.inv.Suspend(func() {
		answer, ok = m.host.PromptUser(prompt)
	})

	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(answer))
	return 1
}

// getLocale() -> string
func (m *EditorModule) getLocale(L *lua.LState) int {
	L.Push(lua.LString(m.host.Locale().String()))
	return 1
}

// getCaretPosition() -> number
func (m *EditorModule) getCaretPosition(L *lua.LState) int {
	L.Push(lua.LNumber(m.host.CaretPosition()))
	return 1
}

// setCaretPosition(pos)
func (m *EditorModule) setCaretPosition(L *lua.LState) int {
	m.host.SetCaretPosition(L.CheckInt(1))
	return 0
}

// getText() -> string
// getText(start, end) -> string
func (m *EditorModule) getText(L *lua.LState) int {
	if L.GetTop() >= 2 {
		L.Push(lua.LString(m.host.TextRange(L.CheckInt(1), L.CheckInt(2))))
		return 1
	}
	L.Push(lua.LString(m.host.Text()))
	return 1
}

// getTextLength() -> number
func (m *EditorModule) getTextLength(L *lua.LState) int {
	L.Push(lua.LNumber(m.host.TextLength()))
	return 1
}

// insertText(text)
// insertText(idx, text)
func (m *EditorModule) insertText(L *lua.LState) int {
	var err error
	if L.GetTop() >= 2 {
		err = m.host.InsertTextAt(L.CheckInt(1), L.CheckString(2))
	} else {
		err = m.host.InsertText(L.CheckString(1))
	}
	if err != nil {
		L.RaiseError("insertText: %v", err)
	}
	return 0
}

// deleteText(start, end) -> string|nil
// deleteText(text) -> string|nil
func (m *EditorModule) deleteText(L *lua.LState) int {
	var removed string
	var ok bool
	if L.Get(1).Type() == lua.LTString {
		removed, ok = m.host.DeleteBeforeCaret(L.CheckString(1))
	} else {
		removed, ok = m.host.DeleteText(L.CheckInt(1), L.CheckInt(2))
	}

	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(removed))
	return 1
}

// replaceText(find, replace) -> count
func (m *EditorModule) replaceText(L *lua.LState) int {
	find := L.CheckString(1)
	replace := L.CheckString(2)

	n, err := m.host.ReplaceText(find, replace)
	if err != nil {
		L.RaiseError("replaceText: %v", err)
		return 0
	}
	L.Push(lua.LNumber(n))
	return 1
}

// highlightText(start, end)
func (m *EditorModule) highlightText(L *lua.LState) int {
	m.host.HighlightText(L.CheckInt(1), L.CheckInt(2))
	return 0
}
