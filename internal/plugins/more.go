package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
)

// More lists the plugins beyond the bar's display cap, one line per plugin in
// overflow order. Line i of the surface is the entry of Layout.Overflow[i].
type More struct {
	watcher

	src Source

	mu      sync.Mutex
	surface *overlay.Surface
}

// NewMore creates the overflow plugin.
func NewMore(src Source) *More {
	return &More{src: src}
}

// Descriptor returns the overlay registration of the plugin.
func (p *More) Descriptor() *overlay.Descriptor {
	return &overlay.Descriptor{
		ID:      overlay.MoreID,
		Name:    "More",
		Icon:    "+",
		BuiltIn: true,
		Init:    p.init,
	}
}

func (p *More) init(_ context.Context, surface *overlay.Surface, _ *event.Channel) error {
	p.mu.Lock()
	p.surface = surface
	p.mu.Unlock()

	p.watch(p.src, func(c overlay.Change) bool {
		return c.Kind != overlay.ChangeSurface && c.Kind != overlay.ChangeVisibility
	}, p.render)
	p.render()
	return nil
}

// render holds mu across snapshot and write so the newest snapshot wins.
func (p *More) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.surface == nil {
		return
	}

	p.surface.SetTitle("More")
	p.surface.SetLines(Lines(p.src.Snapshot())...)
}

// Lines renders the overflow entries of a snapshot.
func Lines(snap overlay.Snapshot) []string {
	plugins := make(map[string]overlay.PluginSnapshot, len(snap.Plugins))
	for _, ps := range snap.Plugins {
		plugins[ps.ID] = ps
	}

	lines := make([]string, 0, len(snap.More))
	for _, ind := range snap.More {
		ps := plugins[ind.ID]
		marker := " "
		switch {
		case ind.Active:
			marker = ">"
		case ind.Notification:
			marker = "*"
		}
		line := fmt.Sprintf("%s %s %s", marker, iconOf(ps), ps.Name)
		if ps.Status != overlay.StatusReady {
			line += " (" + ps.Status.String() + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func iconOf(ps overlay.PluginSnapshot) string {
	if ps.Icon != "" {
		return ps.Icon
	}
	return "?"
}
