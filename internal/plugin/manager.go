package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/emoted/internal/plugin/api"
	"golang.org/x/text/language"
)

// Factory creates a compiled-in plugin.
type Factory func() api.Plugin

// EventHandler handles plugin lifecycle events.
// Handlers must be non-blocking and should not call back into the manager
// that emitted the event. Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin or script lifecycle event.
type ManagerEvent struct {
	Type  ManagerEventType
	Name  string
	Error error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventLoaded is emitted when a plugin or script is loaded.
	EventLoaded ManagerEventType = iota
	// EventUnloaded is emitted when a script is unloaded.
	EventUnloaded
	// EventReloaded is emitted when a changed script replaces its previous version.
	EventReloaded
	// EventError is emitted when loading fails.
	EventError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventUnloaded:
		return "unloaded"
	case EventReloaded:
		return "reloaded"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// events is the subscriber list shared by Manager and ScriptManager.
type events struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// Subscribe registers handler and returns a function that removes it.
func (e *events) Subscribe(handler EventHandler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, handler)
	idx := len(e.handlers) - 1

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if idx < len(e.handlers) {
			e.handlers[idx] = nil
		}
	}
}

// emit sends an event to all handlers outside the lock.
func (e *events) emit(event ManagerEvent) {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				_ = recover()
			}()
			handler(event)
		}()
	}
}

// Manager loads compiled-in plugins. Each plugin is started at most once.
type Manager struct {
	events

	mu        sync.RWMutex
	factories map[string]Factory
	plugins   map[string]api.Plugin
	starting  map[string]bool
	loadOrder []string
}

// NewManager creates a new plugin manager.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[string]Factory),
		plugins:   make(map[string]api.Plugin),
		starting:  make(map[string]bool),
	}
}

// Register makes a plugin available under name.
func (m *Manager) Register(name string, f Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.factories[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	m.factories[name] = f
	return nil
}

// Available returns the registered plugin names, sorted.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load creates the named plugin and starts it against host.
// Loading a plugin twice, or while it is starting, returns ErrAlreadyLoaded.
// A plugin whose Start fails has every registration it made removed when
// host is an api.Scoper.
func (m *Manager) Load(ctx context.Context, name string, host api.API) (api.Plugin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.plugins[name]; exists || m.starting[name] {
		m.mu.Unlock()
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	factory, ok := m.factories[name]
	if ok {
		m.starting[name] = true
	}
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	owner := "plugin:" + name
	scoper, scoped := host.(api.Scoper)
	if scoped {
		host = scoper.Scope(owner)
	}

	p := factory()
	err := p.Start(host)

	m.mu.Lock()
	delete(m.starting, name)
	if err == nil {
		m.plugins[name] = p
		m.loadOrder = append(m.loadOrder, name)
	}
	m.mu.Unlock()

	if err != nil {
		if scoped {
			scoper.RemoveOwner(owner)
		}
		err = fmt.Errorf("start plugin %q: %w", name, err)
		m.emit(ManagerEvent{Type: EventError, Name: name, Error: err})
		return nil, err
	}

	m.emit(ManagerEvent{Type: EventLoaded, Name: name})
	return p, nil
}

// LoadAll loads the named plugins in order. It keeps going after a failure
// and returns the joined errors.
func (m *Manager) LoadAll(ctx context.Context, names []string, host api.API) error {
	var errs []error
	for _, name := range names {
		if _, err := m.Load(ctx, name, host); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns a loaded plugin by name.
func (m *Manager) Get(name string) (api.Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plugins[name]
	return p, ok
}

// Loaded returns the loaded plugin names in load order.
func (m *Manager) Loaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.loadOrder...)
}

// Names returns the display names of loaded plugins for locale, in load order.
func (m *Manager) Names(locale language.Tag) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		names = append(names, m.plugins[name].Name(locale))
	}
	return names
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}
