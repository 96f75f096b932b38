package plugins

import (
	"context"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
)

// SettingsFunc returns the effective configuration as display lines.
type SettingsFunc func() []string

// Settings renders the effective configuration. It is always the last entry
// on the bar.
type Settings struct {
	lines SettingsFunc
}

// NewSettings creates the settings plugin.
func NewSettings(lines SettingsFunc) *Settings {
	return &Settings{lines: lines}
}

// Descriptor returns the overlay registration of the plugin.
func (p *Settings) Descriptor() *overlay.Descriptor {
	return &overlay.Descriptor{
		ID:      overlay.SettingsID,
		Name:    "Settings",
		Icon:    "=",
		BuiltIn: true,
		Init:    p.init,
	}
}

func (p *Settings) init(_ context.Context, surface *overlay.Surface, ch *event.Channel) error {
	surface.SetTitle("Settings")
	p.render(surface)

	// Re-rendered on every activation.
	_, err := ch.Subscribe(event.TypePluginToggled, func(ev event.Event) {
		if d, ok := ev.Detail.(overlay.ToggledDetail); ok && d.State {
			p.render(surface)
		}
	})
	return err
}

func (p *Settings) render(surface *overlay.Surface) {
	if p.lines == nil {
		surface.SetLines("No settings.")
		return
	}
	surface.SetLines(p.lines()...)
}
