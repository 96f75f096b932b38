// Package terminal hosts the overlay on a tcell screen.
//
// The bar occupies the bottom row. While hidden only a small tab is drawn;
// hovering or clicking it reveals the bar. The active plugin's surface is
// drawn in a panel above the bar.
//
// Mouse, key and focus events are translated to overlay inputs:
//
//	pointer onto / off the bar   -> PointerEnter / PointerLeave
//	click on an entry            -> ClickEntry
//	click elsewhere on the bar   -> Click
//	click outside bar and panel  -> ClickOutside
//	Tab / Shift+Tab              -> move keyboard focus along the bar
//	Enter / Space                -> ActivateKey, or ClickEntry on the focused entry
//	Esc                          -> Escape
//	terminal focus lost          -> FocusOut
//
// Ctrl+C ends Run.
package terminal
