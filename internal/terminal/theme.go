package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// Default theme colors.
const (
	DefaultBarColor    = "#1e1e2e"
	DefaultAccentColor = "#7f5af0"
	DefaultBadgeColor  = "#f25f4c"
)

// Theme holds the colors used to draw the overlay.
type Theme struct {
	Bar    tcell.Color
	Accent tcell.Color
	Badge  tcell.Color
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	t, _ := ParseTheme(DefaultBarColor, DefaultAccentColor, DefaultBadgeColor)
	return t
}

// ParseTheme builds a theme from hex colors ("#rrggbb"). Empty values fall
// back to the defaults.
func ParseTheme(bar, accent, badge string) (Theme, error) {
	var t Theme
	var err error
	if t.Bar, err = parseColor(bar, DefaultBarColor); err != nil {
		return Theme{}, fmt.Errorf("bar color: %w", err)
	}
	if t.Accent, err = parseColor(accent, DefaultAccentColor); err != nil {
		return Theme{}, fmt.Errorf("accent color: %w", err)
	}
	if t.Badge, err = parseColor(badge, DefaultBadgeColor); err != nil {
		return Theme{}, fmt.Errorf("badge color: %w", err)
	}
	return t, nil
}

func parseColor(hex, fallback string) (tcell.Color, error) {
	if hex == "" {
		hex = fallback
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return tcell.ColorDefault, err
	}
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b)), nil
}

func (t Theme) barStyle() tcell.Style {
	return tcell.StyleDefault.Background(t.Bar).Foreground(tcell.ColorWhite)
}

func (t Theme) activeStyle() tcell.Style {
	return tcell.StyleDefault.Background(t.Accent).Foreground(tcell.ColorWhite).Bold(true)
}

func (t Theme) badgeStyle() tcell.Style {
	return t.barStyle().Foreground(t.Badge).Bold(true)
}

func (t Theme) panelStyle() tcell.Style {
	return tcell.StyleDefault
}

func (t Theme) borderStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(t.Accent)
}
