package overlay

import (
	"sync"

	"github.com/dshills/devbar/internal/event"
)

// Status represents the lifecycle status of a plugin.
type Status int

// Plugin statuses.
const (
	// StatusLoading - the plugin's Init hook has not completed yet.
	StatusLoading Status = iota

	// StatusReady - Init completed and the plugin can be shown.
	StatusReady

	// StatusError - Init failed. The plugin stays inert for the session.
	StatusError
)

// String returns a string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PluginState is the mutable runtime envelope around one Descriptor.
// Only the Controller mutates it; the getters are safe for concurrent use.
type PluginState struct {
	mu sync.RWMutex

	desc    *Descriptor
	channel *event.Channel

	initOnce sync.Once

	status       Status
	active       bool
	notification bool
	err          error
}

func newPluginState(desc *Descriptor, opts ...event.ChannelOption) *PluginState {
	return &PluginState{
		desc:    desc,
		channel: event.NewChannel(desc.ID, opts...),
		status:  StatusLoading,
	}
}

// ID returns the plugin id.
func (p *PluginState) ID() string {
	return p.desc.ID
}

// Descriptor returns the plugin descriptor.
func (p *PluginState) Descriptor() *Descriptor {
	return p.desc
}

// Channel returns the plugin's private event channel.
func (p *PluginState) Channel() *event.Channel {
	return p.channel
}

// Status returns the current lifecycle status.
func (p *PluginState) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Active returns true if the plugin's panel is shown.
func (p *PluginState) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Notification returns true if the plugin's badge is shown.
func (p *PluginState) Notification() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.notification
}

// Err returns the init failure, if any.
func (p *PluginState) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

func (p *PluginState) setStatus(s Status, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = s
	p.err = err
}

func (p *PluginState) setActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = active
}

func (p *PluginState) setNotification(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notification = on
}
