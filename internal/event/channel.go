package event

import (
	"sync"
	"sync/atomic"
)

// PanicHandler is called when a handler panics during Dispatch.
type PanicHandler func(ev Event, err *PanicError)

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithPanicHandler sets the function called when a handler panics.
func WithPanicHandler(h PanicHandler) ChannelOption {
	return func(c *Channel) {
		c.panicHandler = h
	}
}

// Channel is an owned publish/subscribe object scoped to one plugin.
// It is safe for concurrent use.
type Channel struct {
	mu     sync.RWMutex
	owner  string
	subs   []*subscription
	closed bool

	panicHandler PanicHandler

	dispatched atomic.Uint64
	delivered  atomic.Uint64
}

// NewChannel creates a channel owned by the named plugin.
func NewChannel(owner string, opts ...ChannelOption) *Channel {
	c := &Channel{owner: owner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Owner returns the id of the plugin that owns the channel.
func (c *Channel) Owner() string {
	return c.owner
}

// Subscribe registers a handler for events of the given type.
func (c *Channel) Subscribe(t Type, h Handler, opts ...SubscriptionOption) (Subscription, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if t == "" {
		return nil, ErrInvalidType
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrChannelClosed
	}

	sub := newSubscription(t, h, opts...)
	c.subs = append(c.subs, sub)
	return sub, nil
}

// Unsubscribe cancels and removes a subscription.
func (c *Channel) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s.id == sub.ID() {
			s.Cancel()
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Dispatch delivers the event to every matching subscription, in
// subscription order, before returning. Handlers run outside the channel lock,
// so they may subscribe or dispatch further events.
func (c *Channel) Dispatch(ev Event) error {
	if ev.Type == "" {
		return ErrInvalidType
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrChannelClosed
	}
	subs := make([]*subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()

	c.dispatched.Add(1)

	var spent []*subscription
	for _, sub := range subs {
		if !sub.shouldDeliver(ev) {
			continue
		}
		if sub.config.Once {
			if !sub.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled)) {
				continue
			}
			spent = append(spent, sub)
		}
		c.deliver(ev, sub)
	}

	for _, sub := range spent {
		_ = c.Unsubscribe(sub)
	}
	return nil
}

func (c *Channel) deliver(ev Event, sub *subscription) {
	defer func() {
		if r := recover(); r != nil {
			if c.panicHandler != nil {
				c.panicHandler(ev, &PanicError{SubscriptionID: sub.id, Type: ev.Type, Value: r})
			}
		}
	}()
	sub.handler(ev)
	c.delivered.Add(1)
}

// Len returns the number of live subscriptions.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, s := range c.subs {
		if s.State() != SubscriptionStateCancelled {
			n++
		}
	}
	return n
}

// Stats returns the number of dispatched events and successful deliveries.
func (c *Channel) Stats() (dispatched, delivered uint64) {
	return c.dispatched.Load(), c.delivered.Load()
}

// IsClosed returns true if the channel has been closed.
func (c *Channel) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close cancels every subscription and rejects further use. It is idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for _, s := range c.subs {
		s.Cancel()
	}
	c.subs = nil
	c.closed = true
}
