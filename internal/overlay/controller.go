package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/devbar/internal/event"
)

// DefaultHoverDelay is how long the bar stays visible after the pointer or
// focus leaves it.
const DefaultHoverDelay = 2 * time.Second

// eventSource is the metadata source of events the controller publishes.
const eventSource = "overlay"

// Config configures the overlay controller.
type Config struct {
	// HoverDelay is the auto-hide delay after pointer or focus leaves the bar.
	HoverDelay time.Duration

	// CustomPluginsToShow is the display cap for non-built-in plugins.
	CustomPluginsToShow int

	// IdleFallback bounds the wait for an idle signal before bulk init.
	IdleFallback time.Duration

	// InitParallelism limits concurrent Init hooks during bulk init (0 = unlimited).
	InitParallelism int

	// InitOnDemand initializes a still-loading plugin when it is toggled on.
	InitOnDemand bool
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		HoverDelay:          DefaultHoverDelay,
		CustomPluginsToShow: DefaultCustomPluginsToShow,
		IdleFallback:        DefaultIdleFallback,
		InitParallelism:     0,
		InitOnDemand:        true,
	}
}

// Notifier forwards overlay facts to tooling outside the host.
// Implementations must not block and must tolerate being unconnected.
type Notifier interface {
	Notify(event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for auto-hide and idle scheduling.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithNotifier sets the host notification bridge.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithLogger sets the logger used as the observability sink.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithIdleSignal sets a channel the host closes (or sends on) once it is idle.
func WithIdleSignal(idle <-chan struct{}) Option {
	return func(c *Controller) {
		c.idle = idle
	}
}

// ChangeKind identifies what changed in the overlay.
type ChangeKind int

// Change kinds.
const (
	ChangeVisibility ChangeKind = iota
	ChangeStatus
	ChangeActive
	ChangeNotification
	ChangeSurface
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeVisibility:
		return "visibility"
	case ChangeStatus:
		return "status"
	case ChangeActive:
		return "active"
	case ChangeNotification:
		return "notification"
	case ChangeSurface:
		return "surface"
	default:
		return "unknown"
	}
}

// Change describes a state change observed by Subscribe handlers.
type Change struct {
	Kind     ChangeKind
	PluginID string
}

// ChangeHandler handles overlay changes.
// Handlers must be non-blocking; panics in handlers are recovered.
type ChangeHandler func(Change)

// ToggledDetail is the detail of a plugin-toggled event.
type ToggledDetail struct {
	State  bool
	Plugin *PluginState
}

// NotificationDetail is the detail of a toggle-notification event.
type NotificationDetail struct {
	State bool
}

// RequestNotification asks the overlay to show or clear the badge of the
// plugin owning ch.
func RequestNotification(ch *event.Channel, on bool) error {
	return ch.Dispatch(event.New(event.TypeToggleNotification, NotificationDetail{State: on}, ch.Owner()))
}

type indicator struct {
	active       bool
	notification bool
}

// Controller is the overlay state machine. There is exactly one per host.
// It is safe for concurrent use; plugin hooks are always called without
// internal locks held.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	clock    clockwork.Clock
	notifier Notifier
	logger   *zap.Logger
	metrics  *Metrics
	idle     <-chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	surfaces *Registry
	plugins  []*PluginState
	byID     map[string]*PluginState
	layout   Layout
	bar      map[string]*indicator
	more     map[string]*indicator
	subs     []event.Subscription

	hidden    bool
	activeID  string
	hideTimer clockwork.Timer
	hideGen   uint64

	initialized bool
	cancelIdle  func()
	closed      bool

	// toggleSem serializes TogglePlugin calls.
	toggleSem chan struct{}

	hmu      sync.RWMutex
	handlers []ChangeHandler
}

// NewController creates a controller. The overlay starts hidden.
func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.HoverDelay <= 0 {
		cfg.HoverDelay = DefaultHoverDelay
	}
	if cfg.CustomPluginsToShow < 0 {
		cfg.CustomPluginsToShow = DefaultCustomPluginsToShow
	}

	c := &Controller{
		cfg:       cfg,
		byID:      make(map[string]*PluginState),
		bar:       make(map[string]*indicator),
		more:      make(map[string]*indicator),
		hidden:    true,
		toggleSem: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.surfaces = NewRegistry(func(id string) {
		c.emit(Change{Kind: ChangeSurface, PluginID: id})
	})
	return c
}

// Initialize registers the plugins, creates their surfaces in list order, and
// schedules lazy initialization of every plugin still loading.
//
// Repeated calls on the same controller do not rebuild surfaces or listeners;
// they re-apply each plugin's active flag to its surface and reschedule bulk
// initialization. The plugins argument is only read on the first call.
func (c *Controller) Initialize(plugins []*Descriptor) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if !c.initialized {
		if err := validateDescriptors(plugins); err != nil {
			c.mu.Unlock()
			return err
		}

		for _, d := range plugins {
			c.logger.Debug("creating plugin surface", zap.String("plugin", d.ID))

			st := newPluginState(d, event.WithPanicHandler(c.channelPanic))
			c.plugins = append(c.plugins, st)
			c.byID[d.ID] = st
			c.surfaces.Ensure(d.ID)

			sub, err := st.channel.Subscribe(event.TypeToggleNotification, c.notificationHandler(st))
			if err != nil {
				c.mu.Unlock()
				return fmt.Errorf("subscribe %s: %w", d.ID, err)
			}
			c.subs = append(c.subs, sub)
		}

		c.layout = BuildLayout(plugins, c.cfg.CustomPluginsToShow)
		for _, id := range c.layout.BarIDs() {
			c.bar[id] = &indicator{}
		}
		for _, id := range c.layout.Overflow {
			c.more[id] = &indicator{}
		}
		c.initialized = true
	}

	for _, st := range c.plugins {
		c.reflectLocked(st)
	}

	previous := c.cancelIdle
	scheduler := NewIdleScheduler(c.clock, c.cfg.IdleFallback, c.idle)
	c.cancelIdle = scheduler.Schedule(func() {
		_ = c.InitializeAll(c.ctx)
	})
	c.mu.Unlock()

	if previous != nil {
		previous()
	}
	return nil
}

// InitializeAll runs Init for every plugin still loading, concurrently, and
// waits for all of them to settle. Failures never abort sibling plugins.
func (c *Controller) InitializeAll(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	pending := make([]*PluginState, 0, len(c.plugins))
	for _, st := range c.plugins {
		if st.Status() == StatusLoading {
			pending = append(pending, st)
		}
	}
	c.mu.Unlock()

	var g errgroup.Group
	if c.cfg.InitParallelism > 0 {
		g.SetLimit(c.cfg.InitParallelism)
	}
	for _, st := range pending {
		g.Go(func() error {
			_ = c.InitializePlugin(ctx, st)
			return nil
		})
	}
	return g.Wait()
}

// InitializePlugin runs the plugin's Init hook exactly once. On success the
// plugin becomes Ready; on failure it becomes Error permanently and the
// failure is logged. Concurrent callers wait for the single run and observe
// its result. It is a no-op for a Ready plugin or one this controller does
// not host.
func (c *Controller) InitializePlugin(ctx context.Context, st *PluginState) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if st == nil || c.byID[st.ID()] != st {
		c.mu.Unlock()
		return nil
	}
	surface, ok := c.surfaces.Lookup(st.ID())
	c.mu.Unlock()
	if !ok || st.Status() == StatusReady {
		return nil
	}

	st.initOnce.Do(func() {
		c.runInit(ctx, st, surface)
	})
	return st.Err()
}

func (c *Controller) runInit(ctx context.Context, st *PluginState, surface *Surface) {
	id := st.ID()
	c.logger.Debug("initializing plugin", zap.String("plugin", id))

	var err error
	if st.desc.Init != nil {
		err = callInit(ctx, st.desc.Init, surface, st.channel)
	}

	c.mu.Lock()
	if err != nil {
		st.setStatus(StatusError, fmt.Errorf("init plugin %s: %w", id, err))
	} else {
		st.setStatus(StatusReady, nil)
	}
	c.mu.Unlock()

	c.metrics.initDone(err)
	if err != nil {
		c.logger.Error("failed to init plugin", zap.String("plugin", id), zap.Error(err))
	} else {
		c.notifier.Notify(id+":initialized", nil)
	}
	c.emit(Change{Kind: ChangeStatus, PluginID: id})
}

// TogglePlugin shows or hides a plugin. desired selects the target state;
// nil toggles the current one.
//
// Activating first deactivates the currently active plugin, and a veto from
// that plugin aborts the whole toggle. Deactivating consults the plugin's
// BeforeDeactivate hook. A plugin that is not Ready cannot be activated.
// Calls are serialized per controller; a queued caller gives up when ctx is
// done. Hooks must not call TogglePlugin themselves.
func (c *Controller) TogglePlugin(ctx context.Context, st *PluginState, desired *bool) error {
	select {
	case c.toggleSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
	defer func() { <-c.toggleSem }()

	_, err := c.toggle(ctx, st, desired)
	return err
}

// toggle performs one transition and reports whether the plugin's active
// flag changed. The caller holds toggleSem.
func (c *Controller) toggle(ctx context.Context, st *PluginState, desired *bool) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if st == nil || c.byID[st.ID()] != st {
		c.mu.Unlock()
		return false, nil
	}
	surface, ok := c.surfaces.Lookup(st.ID())
	if !ok {
		c.mu.Unlock()
		return false, nil
	}

	target := !st.Active()
	if desired != nil {
		target = *desired
	}
	if target == st.Active() {
		c.mu.Unlock()
		return false, nil
	}

	var current *PluginState
	if target && c.activeID != "" && c.activeID != st.ID() {
		current = c.byID[c.activeID]
	}
	c.mu.Unlock()

	if current != nil {
		off := false
		changed, err := c.toggle(ctx, current, &off)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
	}

	if !target && st.desc.BeforeDeactivate != nil {
		allow, err := callBeforeDeactivate(ctx, st.desc.BeforeDeactivate, surface)
		switch {
		case ctx.Err() != nil:
			return false, ctx.Err()
		case err != nil:
			c.logger.Warn("before-deactivate hook failed, deactivating anyway",
				zap.String("plugin", st.ID()), zap.Error(err))
		case !allow:
			c.metrics.vetoed()
			c.logger.Debug("deactivation vetoed", zap.String("plugin", st.ID()))
			return false, nil
		}
	}

	if target && st.Status() != StatusReady {
		if st.Status() == StatusLoading && c.cfg.InitOnDemand {
			if err := c.initOnDemand(ctx, st); err != nil {
				return false, err
			}
		}
		if st.Status() != StatusReady {
			return false, nil
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	st.setActive(target)
	if target {
		c.activeID = st.ID()
	} else if c.activeID == st.ID() {
		c.activeID = ""
	}
	c.reflectLocked(st)
	if target {
		c.clearDelayedHideLocked()
	} else if !c.hidden {
		c.triggerDelayedHideLocked()
	}
	c.mu.Unlock()

	c.metrics.toggled(target)
	c.logger.Debug("plugin toggled", zap.String("plugin", st.ID()), zap.Bool("active", target))

	_ = st.channel.Dispatch(event.New(event.TypePluginToggled, ToggledDetail{State: target, Plugin: st}, eventSource))
	c.notifier.Notify(st.ID()+":toggled", map[string]any{"state": target})
	c.emit(Change{Kind: ChangeActive, PluginID: st.ID()})
	return true, nil
}

// initOnDemand runs the plugin's Init under the controller context so the
// outcome does not depend on the toggling caller. The caller stops waiting
// when ctx is done; the init keeps running and settles the plugin's status.
func (c *Controller) initOnDemand(ctx context.Context, st *PluginState) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.InitializePlugin(c.ctx, st)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reflectLocked mirrors the plugin's active flag onto its surface and every
// indicator that lists it. Must be called with mu held.
func (c *Controller) reflectLocked(st *PluginState) {
	active := st.Active()
	if s, ok := c.surfaces.Lookup(st.ID()); ok {
		s.setShown(active)
	}
	if ind, ok := c.bar[st.ID()]; ok {
		ind.active = active
	}
	if ind, ok := c.more[st.ID()]; ok {
		ind.active = active
	}
}

func (c *Controller) notificationHandler(st *PluginState) event.Handler {
	return func(ev event.Event) {
		var on bool
		switch d := ev.Detail.(type) {
		case NotificationDetail:
			on = d.State
		case *NotificationDetail:
			if d == nil {
				return
			}
			on = d.State
		default:
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		st.setNotification(on)
		if ind, ok := c.bar[st.ID()]; ok {
			ind.notification = on
		}
		if ind, ok := c.more[st.ID()]; ok {
			ind.notification = on
		}
		c.mu.Unlock()

		c.emit(Change{Kind: ChangeNotification, PluginID: st.ID()})
	}
}

func (c *Controller) channelPanic(ev event.Event, err *event.PanicError) {
	c.logger.Error("plugin event handler panicked",
		zap.String("event", string(ev.Type)),
		zap.Any("panic", err.Value))
}

// SetVisible shows or hides the bar and reports whether visibility changed.
// Hiding is refused while a plugin is active.
func (c *Controller) SetVisible(visible bool) bool {
	c.mu.Lock()
	changed := c.setVisibleLocked(visible)
	c.mu.Unlock()

	if changed {
		c.emit(Change{Kind: ChangeVisibility})
	}
	return changed
}

// ToggleVisible flips visibility, subject to the same rule as SetVisible.
func (c *Controller) ToggleVisible() bool {
	c.mu.Lock()
	changed := c.setVisibleLocked(c.hidden)
	c.mu.Unlock()

	if changed {
		c.emit(Change{Kind: ChangeVisibility})
	}
	return changed
}

func (c *Controller) setVisibleLocked(visible bool) bool {
	if c.closed {
		return false
	}
	if !visible && c.activeID != "" {
		return false
	}
	if c.hidden == !visible {
		return false
	}
	c.hidden = !visible
	if c.hidden {
		c.clearDelayedHideLocked()
	}
	return true
}

// triggerDelayedHideLocked replaces any pending auto-hide with a fresh one.
// Must be called with mu held.
func (c *Controller) triggerDelayedHideLocked() {
	c.clearDelayedHideLocked()
	gen := c.hideGen
	c.hideTimer = c.clock.AfterFunc(c.cfg.HoverDelay, func() {
		c.expireDelayedHide(gen)
	})
}

// clearDelayedHideLocked cancels any pending auto-hide. Must be called with mu held.
func (c *Controller) clearDelayedHideLocked() {
	if c.hideTimer != nil {
		c.hideTimer.Stop()
		c.hideTimer = nil
	}
	c.hideGen++
}

func (c *Controller) expireDelayedHide(gen uint64) {
	c.mu.Lock()
	if gen != c.hideGen || c.closed {
		c.mu.Unlock()
		return
	}
	c.hideTimer = nil
	changed := c.setVisibleLocked(false)
	c.mu.Unlock()

	if changed {
		c.emit(Change{Kind: ChangeVisibility})
	}
}

// HideScheduled returns true while an auto-hide is pending.
func (c *Controller) HideScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hideTimer != nil
}

// Hidden returns true if the bar is hidden.
func (c *Controller) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

// ActivePlugin returns the active plugin, or nil.
func (c *Controller) ActivePlugin() *PluginState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" {
		return nil
	}
	return c.byID[c.activeID]
}

// Plugin returns the runtime state of a plugin by id.
func (c *Controller) Plugin(id string) (*PluginState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.byID[id]
	return st, ok
}

// Plugins returns all runtime states in declaration order.
func (c *Controller) Plugins() []*PluginState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*PluginState(nil), c.plugins...)
}

// Surfaces returns the rendering surface registry.
func (c *Controller) Surfaces() *Registry {
	return c.surfaces
}

// Layout returns the display grouping computed by Initialize.
func (c *Controller) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Subscribe adds a change handler and returns a function removing it.
func (c *Controller) Subscribe(handler ChangeHandler) func() {
	if handler == nil {
		return func() {}
	}

	c.hmu.Lock()
	c.handlers = append(c.handlers, handler)
	index := len(c.handlers) - 1
	c.hmu.Unlock()

	return func() {
		c.hmu.Lock()
		defer c.hmu.Unlock()
		// Set to nil instead of removing to keep other indexes stable
		if index < len(c.handlers) {
			c.handlers[index] = nil
		}
	}
}

// emit sends a change to all handlers, outside the state lock, recovering panics.
func (c *Controller) emit(change Change) {
	c.hmu.RLock()
	handlers := make([]ChangeHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.hmu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("change handler panicked", zap.Any("panic", r))
				}
			}()
			handler(change)
		}()
	}
}

// Close tears the overlay down: the auto-hide timer and the idle schedule are
// cancelled, in-flight hooks see their context cancelled, and every plugin
// channel is closed. Close is idempotent.
func (c *Controller) Close() error {
	// In-flight hooks observe the teardown before mu is taken.
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.clearDelayedHideLocked()
	cancelIdle := c.cancelIdle
	c.cancelIdle = nil
	for _, sub := range c.subs {
		sub.Cancel()
	}
	plugins := append([]*PluginState(nil), c.plugins...)
	c.mu.Unlock()

	if cancelIdle != nil {
		cancelIdle()
	}
	for _, st := range plugins {
		st.channel.Close()
	}
	return nil
}

func callInit(ctx context.Context, fn InitFunc, surface *Surface, ch *event.Channel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()
	return fn(ctx, surface, ch)
}

func callBeforeDeactivate(ctx context.Context, fn BeforeDeactivateFunc, surface *Surface) (allow bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			allow, err = false, fmt.Errorf("%w: %v", ErrHookPanic, r)
		}
	}()
	return fn(ctx, surface)
}

// IsClosed reports whether err means the overlay was torn down.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
