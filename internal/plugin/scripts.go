package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/emoted/internal/plugin/api"
	plua "github.com/dshills/emoted/internal/plugin/lua"
	"github.com/rs/zerolog"
)

// ScriptManagerConfig configures a ScriptManager.
type ScriptManagerConfig struct {
	// Paths are the directories LoadAll searches
	Paths []string

	// ExecutionTimeout bounds each script run and callback
	ExecutionTimeout time.Duration

	// Config returns the setup table for a script name; nil means empty
	Config func(name string) map[string]any
}

// ScriptManager keeps the set of running scripts. A script is identified by
// its name; loading the same name with the same source is rejected, loading
// it with different source replaces the running version.
type ScriptManager struct {
	events

	mu        sync.RWMutex
	hosts     map[string]*Host
	loadOrder []string

	editor   api.API
	loader   *Loader
	registry *api.Registry
	config   ScriptManagerConfig
	logger   zerolog.Logger
}

// NewScriptManager creates a script manager that loads into editor.
func NewScriptManager(editor api.API, registry *api.Registry, config ScriptManagerConfig, logger zerolog.Logger) *ScriptManager {
	logger = logger.With().Str("component", "scripts").Logger()
	if registry == nil {
		registry = api.DefaultRegistry(logger)
	}
	return &ScriptManager{
		hosts:    make(map[string]*Host),
		editor:   editor,
		loader:   NewLoader(WithPaths(config.Paths...)),
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Loader returns the loader used by LoadAll.
func (m *ScriptManager) Loader() *Loader {
	return m.loader
}

// Load runs script. If a script with the same name is running, identical
// source yields ErrAlreadyLoaded and different source replaces it. The old
// version is unloaded first, so a replacement that fails leaves neither.
func (m *ScriptManager) Load(ctx context.Context, script *Script) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, exists := m.hosts[script.Name]
	if exists && prev.Script().Source == script.Source && prev.State() == StateLoaded {
		return nil, fmt.Errorf("script %q: %w", script.Name, ErrAlreadyLoaded)
	}

	if exists {
		if err := prev.Unload(ctx); err != nil {
			return nil, err
		}
		delete(m.hosts, script.Name)
		m.removeFromLoadOrder(script.Name)
	}

	h := NewHost(script,
		WithHostRegistry(m.registry),
		WithHostExecutionTimeout(m.executionTimeout()),
		WithHostConfig(m.scriptConfig(script.Name)),
		WithHostLogger(m.logger),
	)
	if err := h.Load(ctx, m.editor); err != nil {
		m.emit(ManagerEvent{Type: EventError, Name: script.Name, Error: err})
		return nil, err
	}

	m.hosts[script.Name] = h
	m.loadOrder = append(m.loadOrder, script.Name)

	if exists {
		m.emit(ManagerEvent{Type: EventReloaded, Name: script.Name})
	} else {
		m.emit(ManagerEvent{Type: EventLoaded, Name: script.Name})
	}
	return h, nil
}

// LoadFile reads and loads the script at path.
func (m *ScriptManager) LoadFile(ctx context.Context, path string) (*Host, error) {
	s, err := ReadScript(path)
	if err != nil {
		return nil, err
	}
	return m.Load(ctx, s)
}

// LoadAll discovers scripts in the configured paths and loads each one.
// It keeps going after a failure and returns the joined errors.
func (m *ScriptManager) LoadAll(ctx context.Context) error {
	scripts, err := m.loader.Discover()
	if err != nil {
		return err
	}

	var errs []error
	for path, err := range m.loader.Errors() {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	for _, s := range scripts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := m.Load(ctx, s); err != nil && !errors.Is(err, ErrAlreadyLoaded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload re-reads the script at path and loads it if its source changed.
// An unchanged file is not an error.
func (m *ScriptManager) Reload(ctx context.Context, path string) error {
	_, err := m.LoadFile(ctx, path)
	if errors.Is(err, ErrAlreadyLoaded) {
		return nil
	}
	return err
}

// Unload stops the named script and removes its registrations.
func (m *ScriptManager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	h, ok := m.hosts[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("script %q: %w", name, ErrNotLoaded)
	}
	delete(m.hosts, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	if err := h.Unload(ctx); err != nil {
		return err
	}
	m.emit(ManagerEvent{Type: EventUnloaded, Name: name})
	return nil
}

// UnloadAll stops every script in reverse load order.
func (m *ScriptManager) UnloadAll(ctx context.Context) error {
	names := m.Names()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		if err := m.Unload(ctx, names[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the host running the named script.
func (m *ScriptManager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hosts[name]
	return h, ok
}

// Names returns the running scripts in load order.
func (m *ScriptManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.loadOrder...)
}

// Count returns the number of running scripts.
func (m *ScriptManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hosts)
}

func (m *ScriptManager) executionTimeout() time.Duration {
	if m.config.ExecutionTimeout > 0 {
		return m.config.ExecutionTimeout
	}
	return plua.DefaultExecutionTimeout
}

func (m *ScriptManager) scriptConfig(name string) map[string]any {
	if m.config.Config == nil {
		return nil
	}
	return m.config.Config(name)
}

// removeFromLoadOrder removes a name from the load order slice.
// Must be called with mu held.
func (m *ScriptManager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}
