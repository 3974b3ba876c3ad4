package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Module represents a Lua API module that can be injected into a script.
type Module interface {
	// Name returns the global the module is installed under (e.g., "api", "log").
	Name() string

	// Register installs the module into the Lua state.
	Register(L *lua.LState) error
}

// Invoker runs Lua code on behalf of a callback with exclusive access to the
// state that created it.
type Invoker interface {
	// Invoke runs fn while holding the state.
	Invoke(fn func(L *lua.LState) error) error

	// Suspend lifts the execution deadline while fn runs. It is called from
	// inside Invoke for host calls that wait on the user.
	Suspend(fn func())
}

// ModuleFactory builds the modules for one script.
type ModuleFactory func(owner string, host API, inv Invoker) Module

// Registry manages the module factories injected into every script.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModuleFactory
}

// NewRegistry creates a new API registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ModuleFactory),
	}
}

// Register adds a module factory under name.
func (r *Registry) Register(name string, f ModuleFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("module %q already registered", name)
	}

	r.factories[name] = f
	return nil
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// InjectAll builds every module for owner and registers it into L.
func (r *Registry) InjectAll(L *lua.LState, owner string, host API, inv Invoker) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.sortedNames() {
		mod := r.factories[name](owner, host, inv)
		if err := mod.Register(L); err != nil {
			return fmt.Errorf("failed to register module %q: %w", name, err)
		}
	}
	return nil
}

// sortedNames returns factory names in a deterministic order. Caller must hold the lock.
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
