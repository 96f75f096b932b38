package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/devbar/internal/event"
	"github.com/dshills/devbar/internal/overlay"
	plua "github.com/dshills/devbar/internal/plugin/lua"
)

// Lua globals a plugin script may define.
const (
	initFunc             = "init"
	beforeDeactivateFunc = "before_deactivate"
)

// Host runs a single scripted plugin and adapts it to an overlay.Descriptor.
//
// The script is loaded lazily by the descriptor's Init hook, so a broken
// script surfaces as an Error status instead of failing startup.
type Host struct {
	mu sync.Mutex

	manifest *Manifest
	logger   *zap.Logger

	state   *plua.State
	surface *overlay.Surface
	channel *event.Channel

	// Userdata handed to Lua; reused so scripts can compare identity.
	surfaceUD *lua.LUserData
	channelUD *lua.LUserData

	subMu sync.Mutex
	subs  []event.Subscription

	// ctx bounds callbacks that outlive a single hook call.
	ctx    context.Context
	cancel context.CancelFunc

	executionTimeout time.Duration
	closed           bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger for script output and callback failures.
func WithHostLogger(logger *zap.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// NewHost creates a new plugin host for the given manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	h := &Host{
		manifest:         manifest,
		executionTimeout: plua.DefaultExecutionTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.With(zap.String("plugin", manifest.ID))
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h, nil
}

// ID returns the plugin id.
func (h *Host) ID() string {
	return h.manifest.ID
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// Loaded returns true once the script has been executed.
func (h *Host) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state != nil
}

// Descriptor returns the overlay registration of the plugin.
// Scripted plugins are never built-in.
func (h *Host) Descriptor() *overlay.Descriptor {
	return &overlay.Descriptor{
		ID:               h.manifest.ID,
		Name:             h.manifest.Name,
		Icon:             h.manifest.Icon,
		BuiltIn:          false,
		Init:             h.Init,
		BeforeDeactivate: h.BeforeDeactivate,
	}
}

// Init loads the script and calls its init(surface, channel) global, if any.
func (h *Host) Init(ctx context.Context, surface *overlay.Surface, ch *event.Channel) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return plua.ErrStateClosed
	}
	if h.state != nil {
		return ErrAlreadyLoaded
	}

	state := plua.NewState(plua.WithExecutionTimeout(h.executionTimeout))
	h.surface = surface
	h.channel = ch
	h.installAPI(state)

	if err := state.DoFile(ctx, h.manifest.MainPath()); err != nil {
		state.Close()
		return fmt.Errorf("%w: load %s: %v", ErrLuaCall, h.manifest.Main, err)
	}
	h.state = state

	if !state.HasFunction(initFunc) {
		return nil
	}
	if _, err := state.Call(ctx, initFunc, h.surfaceUD, h.channelUD); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLuaCall, initFunc, err)
	}
	return nil
}

// BeforeDeactivate calls the script's before_deactivate(surface) global.
// Only an explicit false vetoes the deactivation; a missing function, no
// return value, nil or any other value allows it.
func (h *Host) BeforeDeactivate(ctx context.Context, _ *overlay.Surface) (bool, error) {
	h.mu.Lock()
	state, ud := h.state, h.surfaceUD
	h.mu.Unlock()

	if state == nil || !state.HasFunction(beforeDeactivateFunc) {
		return true, nil
	}

	results, err := state.Call(ctx, beforeDeactivateFunc, ud)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrLuaCall, beforeDeactivateFunc, err)
	}
	if len(results) == 0 {
		return true, nil
	}
	return results[0] != lua.LFalse, nil
}

// Close releases the Lua state and cancels pending callbacks.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.cancel()
	h.subMu.Lock()
	for _, sub := range h.subs {
		sub.Cancel()
	}
	h.subs = nil
	h.subMu.Unlock()
	if h.state != nil {
		return h.state.Close()
	}
	return nil
}

// onToggle subscribes a Lua callback to plugin-toggled on the plugin channel.
// The callback runs with the new state once the event arrives.
func (h *Host) onToggle(state *plua.State, fn *lua.LFunction) error {
	sub, err := h.channel.Subscribe(event.TypePluginToggled, func(ev event.Event) {
		detail, ok := ev.Detail.(overlay.ToggledDetail)
		if !ok {
			return
		}
		if _, err := state.CallValue(h.ctx, fn, lua.LBool(detail.State)); err != nil {
			h.logger.Warn("on_toggle callback failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	h.subMu.Lock()
	h.subs = append(h.subs, sub)
	h.subMu.Unlock()
	return nil
}
