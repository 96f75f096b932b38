// Package plugins provides the built-in overlay plugins.
package plugins

import (
	"sync"

	"github.com/dshills/devbar/internal/overlay"
)

// InspectID is the id of the inspect plugin.
const InspectID = "devbar:inspect"

// Source is the overlay state built-in plugins render.
// *overlay.Controller implements it.
type Source interface {
	Snapshot() overlay.Snapshot
	Subscribe(handler overlay.ChangeHandler) func()
}

// watcher re-renders a surface whenever the overlay reports a matching change.
type watcher struct {
	mu          sync.Mutex
	unsubscribe func()
}

func (w *watcher) watch(src Source, match func(overlay.Change) bool, render func()) {
	unsubscribe := src.Subscribe(func(ch overlay.Change) {
		if match(ch) {
			render()
		}
	})

	w.mu.Lock()
	prev := w.unsubscribe
	w.unsubscribe = unsubscribe
	w.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Close stops re-rendering.
func (w *watcher) Close() {
	w.mu.Lock()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Builtins returns the built-in descriptors in bar order, and a function
// that stops them.
func Builtins(src Source, settings SettingsFunc) ([]*overlay.Descriptor, func()) {
	inspect := NewInspect(src)
	more := NewMore(src)
	s := NewSettings(settings)

	descs := []*overlay.Descriptor{
		inspect.Descriptor(),
		more.Descriptor(),
		s.Descriptor(),
	}
	return descs, func() {
		inspect.Close()
		more.Close()
	}
}
