package overlay

import (
	"context"
	"fmt"
)

// InputKind identifies a user interaction the host forwards to the overlay.
type InputKind int

// Input kinds.
const (
	// InputPointerEnter - the pointer moved onto the bar.
	InputPointerEnter InputKind = iota

	// InputPointerLeave - the pointer left the bar.
	InputPointerLeave

	// InputFocusIn - keyboard focus moved into the bar.
	InputFocusIn

	// InputFocusOut - keyboard focus left the bar.
	InputFocusOut

	// InputClick - a click anywhere in the host.
	InputClick

	// InputClickOutside - a click outside the overlay boundary.
	InputClickOutside

	// InputEscape - the Escape key.
	InputEscape

	// InputActivateKey - Space or Enter while the bar has focus.
	InputActivateKey

	// InputClickEntry - a click on the bar entry of Input.PluginID.
	InputClickEntry
)

// String returns a string representation of the input kind.
func (k InputKind) String() string {
	switch k {
	case InputPointerEnter:
		return "pointer-enter"
	case InputPointerLeave:
		return "pointer-leave"
	case InputFocusIn:
		return "focus-in"
	case InputFocusOut:
		return "focus-out"
	case InputClick:
		return "click"
	case InputClickOutside:
		return "click-outside"
	case InputEscape:
		return "escape"
	case InputActivateKey:
		return "activate-key"
	case InputClickEntry:
		return "click-entry"
	default:
		return fmt.Sprintf("input(%d)", int(k))
	}
}

// Input is one user interaction.
type Input struct {
	Kind InputKind

	// PluginID is set for InputClickEntry.
	PluginID string
}

// HandleInput applies the visibility and activation transitions driven by
// user input.
func (c *Controller) HandleInput(ctx context.Context, in Input) error {
	switch in.Kind {
	case InputPointerEnter, InputFocusIn:
		c.reveal()

	case InputPointerLeave, InputFocusOut:
		c.mu.Lock()
		if !c.closed && c.activeID == "" && !c.hidden {
			c.triggerDelayedHideLocked()
		}
		c.mu.Unlock()

	case InputClick, InputActivateKey:
		if c.Hidden() {
			c.SetVisible(true)
		}

	case InputEscape:
		if active := c.ActivePlugin(); active != nil {
			off := false
			return c.TogglePlugin(ctx, active, &off)
		}
		c.SetVisible(false)

	case InputClickOutside:
		c.SetVisible(false)

	case InputClickEntry:
		st, ok := c.Plugin(in.PluginID)
		if !ok {
			return nil
		}
		return c.TogglePlugin(ctx, st, nil)
	}
	return nil
}

// reveal cancels any pending auto-hide and shows the bar.
func (c *Controller) reveal() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.clearDelayedHideLocked()
	changed := c.setVisibleLocked(true)
	c.mu.Unlock()

	if changed {
		c.emit(Change{Kind: ChangeVisibility})
	}
}
