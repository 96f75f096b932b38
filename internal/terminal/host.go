package terminal

import (
	"context"
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/overlay"
)

// ErrNotAttached is returned when the host has no controller.
var ErrNotAttached = errors.New("terminal: no controller attached")

// Controller is the part of overlay.Controller the host drives.
type Controller interface {
	Snapshot() overlay.Snapshot
	HandleInput(ctx context.Context, in overlay.Input) error
	Subscribe(handler overlay.ChangeHandler) func()
}

// Defaults for the plugin panel.
const (
	DefaultPanelWidth  = 60
	DefaultPanelHeight = 12
)

const hiddenTab = " devbar ▲ "

// inputQueueSize bounds the inputs waiting for the controller while Run is
// active. Further inputs are dropped until it catches up.
const inputQueueSize = 64

// Host draws the overlay on a tcell screen and feeds it input.
type Host struct {
	mu sync.Mutex

	screen tcell.Screen
	ctrl   Controller
	theme  Theme
	logger *zap.Logger

	panelWidth  int
	panelHeight int

	// Hit regions from the last frame.
	bar     rect
	panel   rect
	entries []entryRegion
	lines   []entryRegion

	hovering    bool
	focus       int
	lastButtons tcell.ButtonMask

	// queue hands inputs to the controller goroutine while Run is active.
	queue chan []overlay.Input

	idle     chan struct{}
	idleOnce sync.Once
}

// entryRegion maps a screen region to a plugin id.
type entryRegion struct {
	rect
	id string
}

// Option configures a Host.
type Option func(*Host)

// WithTheme sets the colors.
func WithTheme(t Theme) Option {
	return func(h *Host) {
		h.theme = t
	}
}

// WithLogger sets the logger for input errors.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithPanelSize bounds the plugin panel.
func WithPanelSize(width, height int) Option {
	return func(h *Host) {
		if width > 0 {
			h.panelWidth = width
		}
		if height > 0 {
			h.panelHeight = height
		}
	}
}

// New creates a host on screen. The screen is initialized by Run.
func New(screen tcell.Screen, opts ...Option) *Host {
	h := &Host{
		screen:      screen,
		theme:       DefaultTheme(),
		panelWidth:  DefaultPanelWidth,
		panelHeight: DefaultPanelHeight,
		focus:       -1,
		idle:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Idle is closed once the first frame has been shown.
func (h *Host) Idle() <-chan struct{} {
	return h.idle
}

// Attach sets the controller the host renders and drives.
func (h *Host) Attach(ctrl Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctrl = ctrl
}

// Run initializes the screen, draws the overlay and processes events until
// ctx is cancelled or the user presses Ctrl+C. The screen is finalized on
// return.
func (h *Host) Run(ctx context.Context, ctrl Controller) error {
	if ctrl == nil {
		return ErrNotAttached
	}
	h.Attach(ctrl)

	if err := h.screen.Init(); err != nil {
		return err
	}
	defer h.screen.Fini()
	h.screen.EnableMouse()
	h.screen.EnableFocus()
	h.screen.HideCursor()

	unsubscribe := ctrl.Subscribe(func(overlay.Change) {
		// Redraw on the event loop.
		_ = h.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort; queue may be full
	})
	defer unsubscribe()

	// Inputs are applied off the event loop; hooks may block for up to the
	// plugin timeout.
	inputCtx, stopInputs := context.WithCancel(ctx)
	queue := make(chan []overlay.Input, inputQueueSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case batch := <-queue:
				h.apply(inputCtx, ctrl, batch)
			case <-inputCtx.Done():
				return
			}
		}
	}()
	h.mu.Lock()
	h.queue = queue
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.queue = nil
		h.mu.Unlock()
		stopInputs()
		wg.Wait()
	}()

	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	h.Draw()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if quit := h.HandleEvent(ctx, ev); quit {
				return nil
			}
		}
	}
}

// HandleEvent applies a single tcell event and redraws. It returns true
// when the user asked to quit. While Run is active the resulting inputs
// reach the controller asynchronously; otherwise they are applied before
// HandleEvent returns.
func (h *Host) HandleEvent(ctx context.Context, ev tcell.Event) bool {
	var inputs []overlay.Input
	quit := false

	h.mu.Lock()
	switch e := ev.(type) {
	case *tcell.EventKey:
		inputs, quit = h.keyLocked(e)
	case *tcell.EventMouse:
		inputs = h.mouseLocked(e)
	case *tcell.EventFocus:
		if !e.Focused {
			h.focus = -1
			inputs = append(inputs, overlay.Input{Kind: overlay.InputFocusOut})
		}
	case *tcell.EventResize:
		h.screen.Sync()
	}
	ctrl, queue := h.ctrl, h.queue
	h.mu.Unlock()

	if ctrl != nil && len(inputs) > 0 {
		if queue == nil {
			h.apply(ctx, ctrl, inputs)
		} else {
			select {
			case queue <- inputs:
			default:
				h.logger.Warn("input queue full, dropping input", zap.Int("inputs", len(inputs)))
			}
		}
	}

	if !quit {
		h.Draw()
	}
	return quit
}

func (h *Host) apply(ctx context.Context, ctrl Controller, inputs []overlay.Input) {
	for _, in := range inputs {
		if err := ctrl.HandleInput(ctx, in); err != nil {
			h.logger.Debug("input failed",
				zap.Stringer("input", in.Kind),
				zap.String("plugin", in.PluginID),
				zap.Error(err))
		}
	}
}

func (h *Host) keyLocked(e *tcell.EventKey) ([]overlay.Input, bool) {
	switch e.Key() {
	case tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyEscape:
		return []overlay.Input{{Kind: overlay.InputEscape}}, false
	case tcell.KeyTab, tcell.KeyBacktab:
		return h.moveFocusLocked(e.Key() == tcell.KeyTab), false
	case tcell.KeyEnter:
		return h.activateLocked(), false
	case tcell.KeyRune:
		if e.Rune() == ' ' {
			return h.activateLocked(), false
		}
	}
	return nil, false
}

// moveFocusLocked moves keyboard focus along the bar entries. Focusing the
// bar from outside reports FocusIn.
func (h *Host) moveFocusLocked(forward bool) []overlay.Input {
	var inputs []overlay.Input
	if h.focus < 0 {
		inputs = append(inputs, overlay.Input{Kind: overlay.InputFocusIn})
	}
	n := len(h.entries)
	if n == 0 {
		h.focus = 0
		return inputs
	}
	switch {
	case h.focus < 0 && forward:
		h.focus = 0
	case h.focus < 0:
		h.focus = n - 1
	case forward:
		h.focus = (h.focus + 1) % n
	default:
		h.focus = (h.focus - 1 + n) % n
	}
	return inputs
}

func (h *Host) activateLocked() []overlay.Input {
	if h.focus >= 0 && h.focus < len(h.entries) {
		return []overlay.Input{{Kind: overlay.InputClickEntry, PluginID: h.entries[h.focus].id}}
	}
	if h.focus >= 0 {
		return []overlay.Input{{Kind: overlay.InputActivateKey}}
	}
	return nil
}

func (h *Host) mouseLocked(e *tcell.EventMouse) []overlay.Input {
	x, y := e.Position()
	var inputs []overlay.Input

	overBar := h.bar.contains(x, y)
	if overBar != h.hovering {
		h.hovering = overBar
		kind := overlay.InputPointerLeave
		if overBar {
			kind = overlay.InputPointerEnter
		}
		inputs = append(inputs, overlay.Input{Kind: kind})
	}

	pressed := e.Buttons()&tcell.Button1 != 0 && h.lastButtons&tcell.Button1 == 0
	h.lastButtons = e.Buttons()
	if !pressed {
		return inputs
	}

	switch {
	case overBar:
		if id, ok := hit(h.entries, x, y); ok {
			inputs = append(inputs, overlay.Input{Kind: overlay.InputClickEntry, PluginID: id})
		} else {
			inputs = append(inputs, overlay.Input{Kind: overlay.InputClick})
		}
	case h.panel.contains(x, y):
		if id, ok := hit(h.lines, x, y); ok {
			inputs = append(inputs, overlay.Input{Kind: overlay.InputClickEntry, PluginID: id})
		}
	default:
		inputs = append(inputs, overlay.Input{Kind: overlay.InputClickOutside})
	}
	return inputs
}

func hit(regions []entryRegion, x, y int) (string, bool) {
	for _, r := range regions {
		if r.contains(x, y) {
			return r.id, true
		}
	}
	return "", false
}
