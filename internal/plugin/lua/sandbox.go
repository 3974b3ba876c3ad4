package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// dangerousGlobals load code from outside the script or bypass the sandbox.
var dangerousGlobals = []string{
	"dofile",     // Load and execute file
	"loadfile",   // Load file as function
	"load",       // Load string as function
	"loadstring", // Load string as function (deprecated but may exist)
	"require",    // No module search path is available to scripts
	"module",
}

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState) *Sandbox {
	return &Sandbox{L: L}
}

// openSafeLibraries opens only safe Lua standard libraries.
// Not opened: io, os, debug, package, channel, coroutine.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// Install removes dangerous globals from the state.
func (s *Sandbox) Install() {
	for _, name := range dangerousGlobals {
		s.L.SetGlobal(name, lua.LNil)
	}
}

// IsSafe reports whether none of the removed globals have been reinstated.
func (s *Sandbox) IsSafe() bool {
	for _, name := range dangerousGlobals {
		if s.L.GetGlobal(name) != lua.LNil {
			return false
		}
	}
	return true
}
