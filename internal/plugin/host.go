package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/emoted/internal/plugin/api"
	plua "github.com/dshills/emoted/internal/plugin/lua"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// Host runs one script in its own Lua state.
type Host struct {
	mu sync.RWMutex

	script   *Script
	manifest *Manifest

	// Lua runtime
	state  *plua.State
	bridge *plua.Bridge

	// Editor the script was loaded into
	editor api.API

	// State
	hostState State
	err       error

	// Options
	registry         *api.Registry
	config           map[string]any
	executionTimeout time.Duration
	logger           zerolog.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostExecutionTimeout sets the deadline for the script's top level and
// for each of its callbacks.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// WithHostConfig sets the table passed to the script's setup function.
func WithHostConfig(config map[string]any) HostOption {
	return func(h *Host) {
		h.config = config
	}
}

// WithHostRegistry sets the modules injected into the script.
func WithHostRegistry(r *api.Registry) HostOption {
	return func(h *Host) {
		h.registry = r
	}
}

// WithHostLogger sets the logger.
func WithHostLogger(logger zerolog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// NewHost creates a host for script. Nothing runs until Load.
func NewHost(script *Script, opts ...HostOption) *Host {
	h := &Host{
		script:           script,
		hostState:        StateUnloaded,
		config:           make(map[string]any),
		executionTimeout: plua.DefaultExecutionTimeout,
		logger:           zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.registry == nil {
		h.registry = api.DefaultRegistry(h.logger)
	}
	h.logger = h.logger.With().Str("script", script.Name).Logger()
	return h
}

// Name returns the script name.
func (h *Host) Name() string {
	return h.script.Name
}

// Script returns the script this host runs.
func (h *Host) Script() *Script {
	return h.script
}

// Owner is the tag attached to the script's editor registrations.
func (h *Host) Owner() string {
	return "script:" + h.script.Path
}

// Manifest returns the script's manifest, or nil before a successful Load.
func (h *Host) Manifest() *Manifest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.manifest
}

// State returns the current host state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hostState
}

// Error returns the load error, if any.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load creates the Lua state, installs the editor modules and runs the
// script. When editor can batch, the script's top-level edits produce a
// single change notification; when it can scope, the script's
// registrations are tagged so Unload can remove them.
func (h *Host) Load(ctx context.Context, editor api.API) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hostState == StateLoaded {
		return fmt.Errorf("script %q: %w", h.script.Name, ErrAlreadyLoaded)
	}

	state, err := plua.NewState(plua.WithExecutionTimeout(h.executionTimeout))
	if err != nil {
		return h.fail(err)
	}

	h.editor = editor
	scopedAPI := editor
	if s, ok := editor.(api.Scoper); ok {
		scopedAPI = s.Scope(h.Owner())
	}

	if err := h.registry.InjectAll(state.LuaState(), h.script.Name, scopedAPI, state); err != nil {
		state.Close()
		return h.fail(err)
	}

	h.state = state
	h.bridge = plua.NewBridge(state.LuaState())

	err = h.batch(func() error {
		if err := state.DoString(h.script.Source); err != nil {
			return err
		}
		return h.callSetup()
	})
	if err == nil {
		err = state.Invoke(func(L *lua.LState) error {
			m, err := manifestFromLua(L, h.script.Name)
			h.manifest = m
			return err
		})
	}
	if err != nil {
		h.release()
		return h.fail(fmt.Errorf("load script %q: %w", h.script.Name, err))
	}

	h.hostState = StateLoaded
	h.err = nil
	h.logger.Info().Str("path", h.script.Path).Msg("script loaded")
	return nil
}

// batch runs fn inside the editor's Batch when available.
func (h *Host) batch(fn func() error) error {
	b, ok := h.editor.(api.Batcher)
	if !ok {
		return fn()
	}
	var err error
	b.Batch(func() {
		err = fn()
	})
	return err
}

// callSetup calls setup(config) if the script defines it.
func (h *Host) callSetup() error {
	if !h.state.HasFunction("setup") {
		return nil // setup is optional
	}
	_, err := h.state.Call("setup", h.bridge.ToLuaValue(h.config))
	return err
}

// fail records err. Caller must hold the lock.
func (h *Host) fail(err error) error {
	h.hostState = StateError
	h.err = err
	h.logger.Warn().Err(err).Msg("script failed")
	return err
}

// release drops the script's registrations and closes its state.
// Caller must hold the lock.
func (h *Host) release() {
	if s, ok := h.editor.(api.Scoper); ok {
		s.RemoveOwner(h.Owner())
	}
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
	h.bridge = nil
}

// Unload removes the script's registrations and closes its Lua state.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hostState == StateUnloaded {
		return nil
	}

	if h.state != nil && h.state.HasFunction("teardown") {
		err := h.batch(func() error {
			_, err := h.state.Call("teardown")
			return err
		})
		if err != nil {
			h.logger.Warn().Err(err).Msg("teardown failed")
		}
	}

	h.release()
	h.hostState = StateUnloaded
	h.err = nil
	return nil
}

// Call calls a global Lua function in the script with Go arguments.
// Edits it makes are announced once it returns.
func (h *Host) Call(fn string, args ...any) ([]any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return nil, ErrNotLoaded
	}

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = h.bridge.ToLuaValue(arg)
	}

	var results []lua.LValue
	err := h.batch(func() error {
		var err error
		results, err = h.state.Call(fn, luaArgs...)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = h.bridge.ToGoValue(r)
	}
	return out, nil
}

// GetGlobal returns a global of the script converted to Go.
func (h *Host) GetGlobal(name string) any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return nil
	}
	return h.bridge.ToGoValue(h.state.GetGlobal(name))
}
