package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
)

// Inspect lists plugins whose initialization failed and raises its badge
// while any exist.
type Inspect struct {
	watcher

	src Source

	mu      sync.Mutex
	surface *overlay.Surface
	channel *event.Channel
	badge   bool
}

// NewInspect creates the inspect plugin.
func NewInspect(src Source) *Inspect {
	return &Inspect{src: src}
}

// Descriptor returns the overlay registration of the plugin.
func (p *Inspect) Descriptor() *overlay.Descriptor {
	return &overlay.Descriptor{
		ID:      InspectID,
		Name:    "Inspect",
		Icon:    "!",
		BuiltIn: true,
		Init:    p.init,
	}
}

func (p *Inspect) init(_ context.Context, surface *overlay.Surface, ch *event.Channel) error {
	p.mu.Lock()
	p.surface = surface
	p.channel = ch
	p.mu.Unlock()

	p.watch(p.src, func(c overlay.Change) bool {
		return c.Kind == overlay.ChangeStatus
	}, p.render)
	p.render()
	return nil
}

// render rewrites the failure list and updates the badge when it changes.
// mu is held across snapshot and write so the newest snapshot wins.
func (p *Inspect) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return
	}

	var failed []string
	for _, ps := range p.src.Snapshot().Plugins {
		if ps.Status != overlay.StatusError {
			continue
		}
		reason := ps.Error
		if reason == "" {
			reason = "failed to initialize"
		}
		failed = append(failed, fmt.Sprintf("%s: %s", ps.Name, reason))
	}

	p.surface.SetTitle("Inspect")
	if len(failed) > 0 {
		p.surface.SetLines(failed...)
	} else {
		p.surface.SetLines("No issues found.")
	}

	failing := len(failed) > 0
	if failing != p.badge {
		p.badge = failing
		_ = overlay.RequestNotification(p.channel, failing)
	}
}
