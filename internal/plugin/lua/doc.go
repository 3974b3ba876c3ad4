// Package lua runs editor scripts on gopher-lua.
//
// Each script gets its own State. A State opens only the base, table,
// string and math libraries and removes every function that loads code
// (dofile, loadfile, load, loadstring, require), so a script can reach the
// editor only through the modules the plugin API injects.
//
// Every run is bounded by a deadline:
//
//	s, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.DoFile("scripts/shout.lua"); err != nil {
//	    return err
//	}
//
// Callbacks the editor keeps (button actions, text handlers) re-enter the
// state through Invoke, which serializes access and applies the same
// deadline. Suspend lifts the deadline while a callback waits for the
// user, e.g. in a prompt.
//
// Bridge converts setup tables and call results between Lua and Go values.
package lua
