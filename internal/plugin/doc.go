// Package plugin provides the plugin system for emoted.
//
// Two kinds of extensions exist:
//   - compiled-in plugins implementing api.Plugin, started by name through
//     the Manager (emoji, date and find ship with the editor)
//   - Lua scripts, each run in its own sandboxed state by a Host and
//     tracked by the ScriptManager
//
// # Quick Start
//
// The System type wires both together:
//
//	sys := plugin.NewSystem(plugin.SystemConfig{
//	    Factories:    app.Builtins(logger),
//	    Plugins:      []string{"emoji", "date"},
//	    Scripts:      plugin.ScriptManagerConfig{Paths: plugin.DefaultScriptPaths()},
//	    WatchScripts: true,
//	    Post:         ui.Post,
//	    Logger:       logger,
//	})
//	if err := sys.Initialize(ctx, ed); err != nil {
//	    logger.Warn().Err(err).Msg("some plugins failed to load")
//	}
//	defer sys.Shutdown(ctx)
//
// # Scripts
//
// Scripts are single .lua files found in the script paths:
//
//	~/.config/emoted/scripts/smile.lua
//	./.emoted/scripts/smile.lua
//
// The first path holding a name wins. A script's name is its file name
// without the extension. The top level runs once when the script loads;
// it registers callbacks through the global api table:
//
//	manifest = { name = "smile", version = "1.0.0" }
//
//	api.registerTextModificationHandler(function(prev, current)
//	  api.replaceText(":-)", "\240\159\152\138")
//	end)
//
//	api.registerButton("Sign", function()
//	  api.insertText("-- me")
//	end)
//
// Optional globals:
//   - setup(config) runs after the top level with the script's config table
//   - teardown() runs before the script is unloaded
//   - manifest describes the script; it is validated when present
//
// # Loading Rules
//
// Loading a script whose name and source match a running script fails with
// ErrAlreadyLoaded. Loading a name with different source unloads the old
// version first, so its buttons, keys and handlers disappear before the new
// version registers its own. The Reloader uses this to reload scripts when
// their files change.
//
// # Sandbox
//
// Scripts get the base, table, string and math libraries. dofile, loadfile,
// load, loadstring, require and module are removed. Each top-level run and
// each callback has an execution deadline; a script that exceeds it fails
// with lua.ErrExecutionTimeout and the editor keeps running.
//
// # Available API Modules
//
//   - api: the editor (text, caret, selection, buttons, keys, prompts)
//   - log: debug/info/warn/error into the editor log; print goes there too
package plugin
