package terminal

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// rect is a screen region; x and y are inclusive, x+w and y+h exclusive.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

func (r rect) empty() bool {
	return r.w <= 0 || r.h <= 0
}

// drawText draws s starting at (x, y), clipped at maxX, and returns the
// column after the last cell written.
func drawText(s tcell.Screen, x, y, maxX int, text string, style tcell.Style) int {
	state := -1
	rest := text
	for rest != "" {
		var cluster string
		var width int
		cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if width == 0 {
			continue
		}
		if x+width > maxX {
			break
		}
		runes := []rune(cluster)
		s.SetContent(x, y, runes[0], runes[1:], style)
		for i := 1; i < width; i++ {
			s.SetContent(x+i, y, ' ', nil, style)
		}
		x += width
	}
	return x
}

// textWidth returns the display width of text in cells.
func textWidth(text string) int {
	return uniseg.StringWidth(text)
}

// fill paints r with spaces in style.
func fill(s tcell.Screen, r rect, style tcell.Style) {
	for y := r.y; y < r.y+r.h; y++ {
		for x := r.x; x < r.x+r.w; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
}

// drawBox draws a border around r and clears its interior.
func drawBox(s tcell.Screen, r rect, border, inner tcell.Style) {
	if r.w < 2 || r.h < 2 {
		return
	}
	fill(s, rect{r.x + 1, r.y + 1, r.w - 2, r.h - 2}, inner)
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < right; x++ {
		s.SetContent(x, r.y, tcell.RuneHLine, nil, border)
		s.SetContent(x, bottom, tcell.RuneHLine, nil, border)
	}
	for y := r.y + 1; y < bottom; y++ {
		s.SetContent(r.x, y, tcell.RuneVLine, nil, border)
		s.SetContent(right, y, tcell.RuneVLine, nil, border)
	}
	s.SetContent(r.x, r.y, tcell.RuneULCorner, nil, border)
	s.SetContent(right, r.y, tcell.RuneURCorner, nil, border)
	s.SetContent(r.x, bottom, tcell.RuneLLCorner, nil, border)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, border)
}
