package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds each top-level run and each callback.
const DefaultExecutionTimeout = 2 * time.Second

// State wraps gopher-lua with sandboxing and serialized access.
//
// gopher-lua's LState is not goroutine-safe. Every entry point takes the
// state's mutex; Lua code must not call back into entry points of the same
// State (use the *lua.LState handed to Invoke instead).
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	ctx              context.Context
	cancel           context.CancelFunc

	sandbox *Sandbox
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the deadline for each run. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
	}

	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L)
	state.sandbox.Install()

	return state, nil
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.Invoke(func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	return s.Invoke(func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// Invoke runs fn with exclusive access to the Lua state under the execution
// deadline. Panics are recovered and returned as errors.
func (s *State) Invoke(fn func(L *lua.LState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	s.arm()
	defer s.disarm()

	err := s.doWithRecovery(func() error {
		return fn(s.L)
	})
	return s.translate(err)
}

// Suspend lifts the deadline while fn runs and re-arms a fresh one afterwards.
// It must only be called from inside Invoke, typically by a Go function
// exposed to Lua that waits for the user.
func (s *State) Suspend(fn func()) {
	s.disarm()
	defer s.arm()
	fn()
}

// arm installs a fresh deadline context. Caller must hold the lock.
func (s *State) arm() {
	if s.executionTimeout <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
	s.ctx, s.cancel = ctx, cancel
	s.L.SetContext(ctx)
}

// disarm removes the deadline context. Caller must hold the lock.
func (s *State) disarm() {
	if s.cancel == nil {
		return
	}
	s.L.RemoveContext()
	s.cancel()
	s.ctx, s.cancel = nil, nil
}

// translate maps deadline failures to ErrExecutionTimeout. The VM reports
// them as plain runtime errors, so the armed context is consulted.
// Caller must hold the lock.
func (s *State) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		(s.ctx != nil && errors.Is(s.ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	}
	return err
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Call calls a global Lua function with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue

	err := s.Invoke(func(L *lua.LState) error {
		fnVal := L.GetGlobal(fn)
		if fnVal == lua.LNil {
			return fmt.Errorf("function %q not found", fn)
		}
		if fnVal.Type() != lua.LTFunction {
			return fmt.Errorf("%q is not a function (got %s)", fn, fnVal.Type())
		}

		// Record stack top before pushing anything
		stackTop := L.GetTop()

		L.Push(fnVal)
		for _, arg := range args {
			L.Push(arg)
		}
		if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		// Collect only the values added by the call
		nRet := L.GetTop() - stackTop
		results = make([]lua.LValue, 0, max(nRet, 0))
		for i := 0; i < nRet; i++ {
			results = append(results, L.Get(stackTop+i+1))
		}
		if nRet > 0 {
			L.Pop(nRet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// HasFunction reports whether the named global is a function.
func (s *State) HasFunction(name string) bool {
	return s.GetGlobal(name).Type() == lua.LTFunction
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// LuaState returns the underlying gopher-lua state.
//
// WARNING: Direct access bypasses the mutex and the deadline. Use it only
// while no other goroutine can reach this State, e.g. during setup.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Sandbox returns the sandbox installed in this state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.L.Close()
	s.closed = true
	return nil
}
