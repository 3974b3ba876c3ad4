package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/dshills/emoted/internal/watcher"
	"github.com/rs/zerolog"
)

// System ties together the compiled-in plugins, the Lua scripts and the
// script reloader. It is the editor's single entry point into plugins.
type System struct {
	mu sync.RWMutex

	// Core components
	manager  *Manager
	scripts  *ScriptManager
	reloader *Reloader
	registry *api.Registry

	// Configuration
	config SystemConfig
	logger zerolog.Logger

	// State
	initialized bool
	cancel      context.CancelFunc
}

// SystemConfig configures the plugin system.
type SystemConfig struct {
	// Factories are the compiled-in plugins that can be loaded by name
	Factories map[string]Factory

	// Plugins are the compiled-in plugins to start, in order
	Plugins []string

	// Scripts configures script discovery and execution
	Scripts ScriptManagerConfig

	// ScriptFiles are loaded in addition to the scripts found in Scripts.Paths
	ScriptFiles []string

	// WatchScripts reloads scripts when their files change
	WatchScripts bool

	// WatchDelay debounces file events; zero uses the watcher default
	WatchDelay time.Duration

	// Post runs reloads on the editor goroutine; required for WatchScripts
	Post PostFunc

	Logger zerolog.Logger
}

// NewSystem creates a plugin system. Nothing is loaded until Initialize.
func NewSystem(config SystemConfig) *System {
	return &System{
		config: config,
		logger: config.Logger.With().Str("component", "plugins").Logger(),
	}
}

// Initialize starts the configured plugins and scripts against editor.
// Individual plugin and script failures do not stop the others; they are
// returned joined once everything that could load has loaded.
func (s *System) Initialize(ctx context.Context, editor api.API) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}

	s.registry = api.DefaultRegistry(s.config.Logger)

	s.manager = NewManager()
	for name, f := range s.config.Factories {
		if err := s.manager.Register(name, f); err != nil {
			return err
		}
	}
	s.manager.Subscribe(s.logEvent("plugin"))

	s.scripts = NewScriptManager(editor, s.registry, s.config.Scripts, s.config.Logger)
	s.scripts.Subscribe(s.logEvent("script"))

	var errs []error
	if err := s.manager.LoadAll(ctx, s.config.Plugins, editor); err != nil {
		errs = append(errs, err)
	}
	if err := s.scripts.LoadAll(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, path := range s.config.ScriptFiles {
		if _, err := s.scripts.LoadFile(ctx, path); err != nil && !errors.Is(err, ErrAlreadyLoaded) {
			errs = append(errs, err)
		}
	}

	if s.config.WatchScripts {
		if err := s.startReloader(); err != nil {
			errs = append(errs, fmt.Errorf("watch scripts: %w", err))
		}
	}

	s.initialized = true
	s.logger.Info().
		Int("plugins", s.manager.Count()).
		Int("scripts", s.scripts.Count()).
		Msg("plugin system initialized")
	return errors.Join(errs...)
}

// startReloader watches the script directories and the extra script
// files. Caller must hold the lock.
func (s *System) startReloader() error {
	if s.config.Post == nil {
		return errors.New("no post function to run reloads on the editor goroutine")
	}


	delay := s.config.WatchDelay
	if delay <= 0 {
		delay = watcher.DefaultDelay
	}

	r, err := NewReloader(s.scripts, s.scripts.Loader().Paths(), s.config.ScriptFiles, delay, s.config.Post, s.config.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.reloader = r
	s.cancel = cancel
	go r.Run(ctx)
	return nil
}

func (s *System) logEvent(kind string) EventHandler {
	return func(ev ManagerEvent) {
		if ev.Type == EventError {
			s.logger.Warn().Err(ev.Error).Str(kind, ev.Name).Msg(kind + " failed")
			return
		}
		s.logger.Info().Str(kind, ev.Name).Msg(kind + " " + ev.Type.String())
	}
}

// Shutdown stops the reloader and unloads every script. Compiled-in
// plugins have no teardown; their registrations live as long as the editor.
func (s *System) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}

	if s.reloader != nil {
		s.cancel()
		_ = s.reloader.Close()
		select {
		case <-s.reloader.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		s.reloader = nil
	}

	err := s.scripts.UnloadAll(ctx)
	s.initialized = false
	return err
}

// Manager returns the compiled-in plugin manager.
func (s *System) Manager() *Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// Scripts returns the script manager.
func (s *System) Scripts() *ScriptManager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scripts
}

// Registry returns the modules injected into scripts.
func (s *System) Registry() *api.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Watching reports whether scripts are reloaded on change.
func (s *System) Watching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloader != nil
}

// IsInitialized returns true if the system is initialized.
func (s *System) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}
