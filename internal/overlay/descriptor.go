package overlay

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/devbar/internal/event"
)

// Reserved plugin ids. Both are always rendered last on the bar regardless of
// declaration order.
const (
	// MoreID is the overflow entry listing plugins beyond the display cap.
	MoreID = "devbar:more"

	// SettingsID is the settings entry, always the final item on the bar.
	SettingsID = "devbar:settings"
)

// InitFunc initializes a plugin. It is called exactly once, with the plugin's
// rendering surface and its private event channel.
type InitFunc func(ctx context.Context, surface *Surface, ch *event.Channel) error

// BeforeDeactivateFunc is consulted before a plugin is deactivated. Returning
// false vetoes the deactivation.
type BeforeDeactivateFunc func(ctx context.Context, surface *Surface) (bool, error)

// Descriptor describes one plugin hosted by the overlay.
// A descriptor must not be modified after it has been passed to Initialize.
type Descriptor struct {
	// ID is the unique, stable key of the plugin.
	ID string

	// Name is the human-readable name shown as the entry tooltip.
	Name string

	// Icon is a short glyph or icon name drawn on the bar entry.
	Icon string

	// BuiltIn is true for tools shipped with the overlay.
	BuiltIn bool

	// Init is optional.
	Init InitFunc

	// BeforeDeactivate is optional.
	BeforeDeactivate BeforeDeactivateFunc
}

// Validate checks that the descriptor can be registered.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDescriptor)
	}
	if d.IsReserved() && !d.BuiltIn {
		return fmt.Errorf("%w: %s is reserved for built-in plugins", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// IsReserved returns true if the descriptor uses one of the reserved ids.
func (d *Descriptor) IsReserved() bool {
	return d.ID == MoreID || d.ID == SettingsID
}

// DisplayName returns the name, falling back to the id.
func (d *Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// validateDescriptors checks every descriptor and rejects duplicate ids.
func validateDescriptors(plugins []*Descriptor) error {
	seen := make(map[string]bool, len(plugins))
	for _, d := range plugins {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}
