package overlay

import "errors"

// Overlay errors.
var (
	// ErrClosed is returned when operating on a controller after Close.
	ErrClosed = errors.New("overlay is closed")

	// ErrInvalidDescriptor is returned when a plugin descriptor fails validation.
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")

	// ErrDuplicatePlugin is returned when two descriptors share an id.
	ErrDuplicatePlugin = errors.New("duplicate plugin id")

	// ErrHookPanic is returned when a plugin hook panics.
	ErrHookPanic = errors.New("plugin hook panicked")
)
