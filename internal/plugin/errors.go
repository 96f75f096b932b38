package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNoEntryPoint is returned when a plugin has no valid entry point.
	ErrNoEntryPoint = errors.New("plugin has no entry point (init.lua or main.lua)")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrAlreadyLoaded is returned when loading a plugin twice.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrDuplicateID is returned when two discovered plugins share an id.
	ErrDuplicateID = errors.New("duplicate plugin id")

	// ErrLuaCall is returned when a plugin's Lua code fails.
	ErrLuaCall = errors.New("lua call failed")
)
