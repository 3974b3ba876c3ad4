package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when no plugin is registered under a name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyLoaded is returned when a plugin or an identical script is loaded twice.
	ErrAlreadyLoaded = errors.New("already loaded")

	// ErrNotLoaded is returned when operating on a script that is not loaded.
	ErrNotLoaded = errors.New("not loaded")

	// ErrInvalidScript is returned for files that are not Lua scripts.
	ErrInvalidScript = errors.New("not a lua script")

	// ErrInvalidManifest is returned when a script's manifest table fails validation.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrAlreadyInitialized is returned when System.Initialize is called twice.
	ErrAlreadyInitialized = errors.New("plugin system already initialized")

	// ErrNotInitialized is returned when System is used before Initialize.
	ErrNotInitialized = errors.New("plugin system not initialized")
)
