package overlay

// Snapshot is an immutable view of the overlay state.
type Snapshot struct {
	Hidden        bool                `json:"hidden"`
	HideScheduled bool                `json:"hideScheduled"`
	Active        string              `json:"active,omitempty"`
	Layout        Layout              `json:"layout"`
	Plugins       []PluginSnapshot    `json:"plugins"`
	Bar           []IndicatorSnapshot `json:"bar"`
	More          []IndicatorSnapshot `json:"more,omitempty"`
}

// PluginSnapshot is the state of one plugin at snapshot time.
type PluginSnapshot struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon,omitempty"`
	BuiltIn      bool     `json:"builtIn"`
	Status       Status   `json:"status"`
	Active       bool     `json:"active"`
	Notification bool     `json:"notification"`
	Error        string   `json:"error,omitempty"`
	Title        string   `json:"title,omitempty"`
	Lines        []string `json:"lines,omitempty"`
}

// IndicatorSnapshot is the state of one entry on the bar or the more panel.
type IndicatorSnapshot struct {
	ID           string `json:"id"`
	Active       bool   `json:"active"`
	Notification bool   `json:"notification"`
}

// Snapshot returns the current overlay state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Hidden:        c.hidden,
		HideScheduled: c.hideTimer != nil,
		Active:        c.activeID,
		Layout:        c.layout,
		Plugins:       make([]PluginSnapshot, 0, len(c.plugins)),
	}

	for _, st := range c.plugins {
		ps := PluginSnapshot{
			ID:           st.ID(),
			Name:         st.desc.DisplayName(),
			Icon:         st.desc.Icon,
			BuiltIn:      st.desc.BuiltIn,
			Status:       st.Status(),
			Active:       st.Active(),
			Notification: st.Notification(),
		}
		if err := st.Err(); err != nil {
			ps.Error = err.Error()
		}
		if s, ok := c.surfaces.Lookup(st.ID()); ok {
			ps.Title = s.Title()
			ps.Lines = s.Lines()
		}
		snap.Plugins = append(snap.Plugins, ps)
	}

	for _, id := range c.layout.BarIDs() {
		if ind, ok := c.bar[id]; ok {
			snap.Bar = append(snap.Bar, IndicatorSnapshot{ID: id, Active: ind.active, Notification: ind.notification})
		}
	}
	for _, id := range c.layout.Overflow {
		if ind, ok := c.more[id]; ok {
			snap.More = append(snap.More, IndicatorSnapshot{ID: id, Active: ind.active, Notification: ind.notification})
		}
	}
	return snap
}

// Plugin returns the snapshot of the plugin with the given id.
func (s Snapshot) Plugin(id string) (PluginSnapshot, bool) {
	for _, p := range s.Plugins {
		if p.ID == id {
			return p, true
		}
	}
	return PluginSnapshot{}, false
}
