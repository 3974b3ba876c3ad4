// Package api defines the contract between the editor and its extensions.
//
// Compiled-in plugins implement Plugin and receive an API in Start. Text
// modification handlers implement TextModificationHandler (or use the
// TextModificationFunc adapter) and are called with the buffer content before
// and after every edit.
//
// Lua scripts see the same surface through the global "api" table installed
// by EditorModule:
//
//	api.registerTextModificationHandler({
//	    onTextModified = function(self, prev, current)
//	        api.replaceText(":-)", "\240\159\152\138")
//	    end,
//	})
//
//	api.registerOnFunctionKeyEvent("F5", function()
//	    api.insertText("-- signed --")
//	end)
//
// Offsets passed across the API count runes. Range arguments are clamped to
// the buffer like the editor's own text area does.
//
// # Modules
//
// Lua-facing functionality is packaged as Module values collected in a
// Registry, which injects them into each script's state:
//
//	type Module interface {
//	    Name() string
//	    Register(L *lua.LState) error
//	}
package api
