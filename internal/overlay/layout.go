package overlay

// DefaultCustomPluginsToShow is the number of non-built-in plugins shown on the
// bar before the rest move behind the "more" entry.
const DefaultCustomPluginsToShow = 3

// Layout is the display grouping of the control bar.
// It is a pure display policy and never affects plugin lifecycle.
type Layout struct {
	// BuiltIns are built-in plugins other than the reserved ids, in declaration order.
	BuiltIns []string `json:"builtIns"`

	// Custom are the non-built-in plugins shown directly on the bar.
	Custom []string `json:"custom"`

	// Overflow are the non-built-in plugins beyond the display cap.
	Overflow []string `json:"overflow,omitempty"`

	// More is MoreID when the overflow entry is shown, otherwise empty.
	More string `json:"more,omitempty"`

	// Settings is SettingsID when a settings plugin is registered.
	Settings string `json:"settings,omitempty"`
}

// BuildLayout groups descriptors for display: built-ins first (excluding the
// reserved ids), then up to limit non-built-ins, then the overflow entry when
// the limit is exceeded, then settings.
func BuildLayout(plugins []*Descriptor, limit int) Layout {
	if limit < 0 {
		limit = 0
	}

	var l Layout
	hasMore := false
	for _, d := range plugins {
		switch {
		case d.BuiltIn && d.ID == MoreID:
			hasMore = true
		case d.BuiltIn && d.ID == SettingsID:
			l.Settings = SettingsID
		case d.BuiltIn:
			l.BuiltIns = append(l.BuiltIns, d.ID)
		case len(l.Custom) < limit:
			l.Custom = append(l.Custom, d.ID)
		default:
			l.Overflow = append(l.Overflow, d.ID)
		}
	}
	if hasMore && len(l.Overflow) > 0 {
		l.More = MoreID
	}
	return l
}

// BarIDs returns the ids of all entries on the bar, in display order.
func (l Layout) BarIDs() []string {
	ids := make([]string, 0, len(l.BuiltIns)+len(l.Custom)+2)
	ids = append(ids, l.BuiltIns...)
	ids = append(ids, l.Custom...)
	if l.More != "" {
		ids = append(ids, l.More)
	}
	if l.Settings != "" {
		ids = append(ids, l.Settings)
	}
	return ids
}

// IsOverflowed returns true if the plugin is only reachable through "more".
func (l Layout) IsOverflowed(id string) bool {
	for _, o := range l.Overflow {
		if o == id {
			return true
		}
	}
	return false
}
