// Package app wires the emoted editor together: configuration, the buffer
// and editor, the plugin system and the terminal UI.
package app

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dshills/emoted/internal/charset"
	"github.com/dshills/emoted/internal/config"
	"github.com/dshills/emoted/internal/editor"
	"github.com/dshills/emoted/internal/plugin"
	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/dshills/emoted/internal/plugin/date"
	"github.com/dshills/emoted/internal/plugin/emoji"
	"github.com/dshills/emoted/internal/plugin/find"
	"github.com/dshills/emoted/internal/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding"
)

// shutdownTimeout bounds script teardown on exit.
const shutdownTimeout = 5 * time.Second

// Builtins returns the compiled-in plugins by name.
func Builtins(logger zerolog.Logger) map[string]plugin.Factory {
	return map[string]plugin.Factory{
		"emoji": func() api.Plugin { return emoji.New(logger) },
		"date":  func() api.Plugin { return date.New(logger) },
		"find":  func() api.Plugin { return find.New(logger) },
	}
}

// Options configures the application.
type Options struct {
	// Config is the loaded configuration; required
	Config *config.Config

	// File is opened on startup; empty starts a scratch buffer
	File string

	// Scripts are Lua files loaded in addition to the configured paths
	Scripts []string

	// Screen defaults to the controlling terminal
	Screen tcell.Screen

	Logger zerolog.Logger
}

// App is the running editor.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	editor  *editor.Editor
	plugins *plugin.System
	screen  tcell.Screen
	ui      *ui.UI

	path    string
	enc     encoding.Encoding
	encName string
	running atomic.Bool

	// ctx is the context of the current Run, used for plugins loaded on
	// request
	ctx context.Context
}

// New builds the application. Nothing is drawn and no plugin runs until
// Run.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, ErrNoConfig
	}
	cfg := opts.Config

	a := &App{
		cfg:    cfg,
		logger: opts.Logger,
		ctx:    context.Background(),
		editor: editor.New(nil, editor.WithLocale(cfg.LocaleTag()), editor.WithLogger(opts.Logger)),
	}

	enc, err := charset.Lookup(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	a.enc = enc
	a.encName = cfg.Encoding
	if a.encName == "" {
		a.encName = charset.Default
	}

	// Invalid bindings are reported; the valid ones still apply.
	km, kmErr := cfg.ParseKeymap()
	if kmErr != nil {
		a.logger.Warn().Err(kmErr).Msg("keymap")
	}

	if opts.File != "" {
		if err := a.open(opts.File); err != nil {
			return nil, err
		}
	}

	screen := opts.Screen
	if screen == nil {
		if screen, err = ui.NewTerminal(); err != nil {
			return nil, err
		}
	}
	a.screen = screen

	uiOpts := ui.Options{
		Save:     a.Save,
		SaveAs:   a.SaveAs,
		Open:     a.OpenFile,
		Load:     func(name string) (string, error) { return a.LoadPlugin(a.ctx, name) },
		Encoding: a.encName,
		Keymap:   km,
		Logger:   opts.Logger,
	}
	if a.path != "" {
		uiOpts.Title = filepath.Base(a.path)
	}
	a.ui = ui.New(screen, a.editor, uiOpts)
	if kmErr != nil {
		a.editor.Notify("Keymap: " + kmErr.Error())
	}

	paths := cfg.Scripts.Paths
	if len(paths) == 0 {
		paths = plugin.DefaultScriptPaths()
	}
	a.plugins = plugin.NewSystem(plugin.SystemConfig{
		Factories: Builtins(opts.Logger),
		Plugins:   cfg.Plugins,
		Scripts: plugin.ScriptManagerConfig{
			Paths:            paths,
			ExecutionTimeout: cfg.Scripts.Timeout,
			Config:           cfg.ScriptConfig,
		},
		ScriptFiles:  opts.Scripts,
		WatchScripts: cfg.Scripts.Watch,
		Post:         a.ui.Post,
		Logger:       opts.Logger,
	})

	return a, nil
}

// Run loads the plugins and runs the UI until the user quits or ctx is
// done. The screen is finalized on return.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)
	defer a.screen.Fini()
	a.ctx = ctx

	if err := a.plugins.Initialize(ctx, a.editor); err != nil {
		// The editor is usable without the plugins that failed.
		a.logger.Warn().Err(err).Msg("plugins failed to load")
		a.editor.Notify("Some plugins failed to load; see the log")
	}
	a.logger.Info().
		Strs("plugins", a.plugins.Manager().Names(a.editor.Locale())).
		Strs("scripts", a.plugins.Scripts().Names()).
		Msg("editor ready")

	stop := context.AfterFunc(ctx, func() { a.ui.Post(a.ui.Quit) })
	err := a.ui.Run()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := a.plugins.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn().Err(serr).Msg("plugin shutdown")
	}
	return err
}

// LoadPlugin loads a compiled-in plugin by name, or the script at name
// when it ends in ".lua", and describes what it loaded.
func (a *App) LoadPlugin(ctx context.Context, name string) (string, error) {
	if !a.plugins.IsInitialized() {
		return "", plugin.ErrNotInitialized
	}
	if plugin.IsScriptPath(name) {
		h, err := a.plugins.Scripts().LoadFile(ctx, name)
		if err != nil {
			return "", err
		}
		a.logger.Info().Str("script", h.Name()).Str("path", name).Msg("script loaded on request")
		return "Loaded script " + h.Name(), nil
	}
	p, err := a.plugins.Manager().Load(ctx, name, a.editor)
	if err != nil {
		return "", err
	}
	a.logger.Info().Str("plugin", name).Msg("plugin loaded on request")
	return "Loaded plugin " + p.Name(a.editor.Locale()), nil
}

// IsRunning reports whether Run is active.
func (a *App) IsRunning() bool {
	return a.running.Load()
}

// Editor returns the editor.
func (a *App) Editor() *editor.Editor {
	return a.editor
}

// Plugins returns the plugin system.
func (a *App) Plugins() *plugin.System {
	return a.plugins
}

// UI returns the terminal frontend.
func (a *App) UI() *ui.UI {
	return a.ui
}
