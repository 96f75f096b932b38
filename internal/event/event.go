package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names the kind of an event delivered on a Channel.
type Type string

// Well-known event types exchanged between the overlay and its plugins.
const (
	// TypePluginToggled is published by the overlay whenever a plugin is
	// activated or deactivated.
	TypePluginToggled Type = "plugin-toggled"

	// TypeToggleNotification is published by a plugin to request that the
	// overlay show or clear the badge on its control-bar entry.
	TypeToggleNotification Type = "toggle-notification"
)

// Event is a single message delivered on a Channel.
// Events are immutable once created.
type Event struct {
	// Type is the event type.
	Type Type

	// Detail carries the event-specific payload.
	Detail any

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies who published the event.
	Source string
}

// New creates a new event with the given type and detail.
func New(t Type, detail any, source string) Event {
	return Event{
		Type:   t,
		Detail: detail,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// Handler handles an event delivered on a Channel.
// Handlers run synchronously in the dispatching goroutine and should not block.
type Handler func(ev Event)

// FilterFunc is a predicate deciding whether an event reaches a subscription.
type FilterFunc func(ev Event) bool
