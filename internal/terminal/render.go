package terminal

import "github.com/dshills/devbar/internal/overlay"

// Badge drawn after an entry with a pending notification.
const badge = "●"

// Draw renders the current controller state and shows the frame.
func (h *Host) Draw() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.screen.Clear()
	h.bar, h.panel = rect{}, rect{}
	h.entries, h.lines = h.entries[:0], h.lines[:0]

	if h.ctrl != nil {
		h.drawLocked(h.ctrl.Snapshot())
	}
	h.screen.Show()
	h.idleOnce.Do(func() { close(h.idle) })
}

func (h *Host) drawLocked(snap overlay.Snapshot) {
	w, ht := h.screen.Size()
	if w <= 0 || ht <= 0 {
		return
	}
	y := ht - 1

	if snap.Hidden {
		tw := textWidth(hiddenTab)
		x := (w - tw) / 2
		if x < 0 {
			x = 0
		}
		h.bar = rect{x, y, tw, 1}
		drawText(h.screen, x, y, w, hiddenTab, h.theme.barStyle())
		return
	}

	h.bar = rect{0, y, w, 1}
	fill(h.screen, h.bar, h.theme.barStyle())

	x := 1
	for _, ind := range snap.Bar {
		p, ok := snap.Plugin(ind.ID)
		if !ok {
			continue
		}
		style := h.theme.barStyle()
		if ind.Active {
			style = h.theme.activeStyle()
		}
		if len(h.entries) == h.focus {
			style = style.Underline(true)
		}
		if p.Status == overlay.StatusLoading {
			style = style.Dim(true)
		}

		label := " " + entryLabel(p) + " "
		start := x
		x = drawText(h.screen, x, y, w, label, style)
		if ind.Notification {
			x = drawText(h.screen, x, y, w, badge, h.theme.badgeStyle())
		}
		if x > start {
			h.entries = append(h.entries, entryRegion{rect{start, y, x - start, 1}, ind.ID})
		}
		x++
		if x >= w {
			break
		}
	}
	if h.focus >= len(h.entries) {
		h.focus = len(h.entries) - 1
	}

	if snap.Active != "" {
		if p, ok := snap.Plugin(snap.Active); ok {
			h.drawPanelLocked(snap, p, w, y)
		}
	}
}

// drawPanelLocked draws the active plugin's surface above the bar.
func (h *Host) drawPanelLocked(snap overlay.Snapshot, p overlay.PluginSnapshot, w, barY int) {
	pw := h.panelWidth
	if pw > w {
		pw = w
	}
	ph := len(p.Lines) + 2
	if ph < 3 {
		ph = 3
	}
	if ph > h.panelHeight {
		ph = h.panelHeight
	}
	if ph > barY {
		ph = barY
	}
	h.panel = rect{0, barY - ph, pw, ph}
	if h.panel.empty() || pw < 4 || ph < 3 {
		h.panel = rect{}
		return
	}

	drawBox(h.screen, h.panel, h.theme.borderStyle(), h.theme.panelStyle())

	title := p.Title
	if title == "" {
		title = p.Name
	}
	right := h.panel.x + h.panel.w - 1
	drawText(h.screen, h.panel.x+2, h.panel.y, right-1, " "+title+" ", h.theme.borderStyle())

	rows := h.panel.h - 2
	for i, line := range p.Lines {
		if i >= rows {
			break
		}
		ly := h.panel.y + 1 + i
		drawText(h.screen, h.panel.x+2, ly, right-1, line, h.theme.panelStyle())

		// Lines of the more panel correspond to the overflowed plugins.
		if p.ID == overlay.MoreID && i < len(snap.Layout.Overflow) {
			h.lines = append(h.lines, entryRegion{
				rect{h.panel.x + 1, ly, h.panel.w - 2, 1},
				snap.Layout.Overflow[i],
			})
		}
	}
}

// entryLabel returns the bar label of a plugin.
func entryLabel(p overlay.PluginSnapshot) string {
	if p.Icon == "" {
		return p.Name
	}
	return p.Icon + " " + p.Name
}
