// Package bridge forwards overlay events to tooling outside the host process.
//
// Delivery is fire-and-forget. An unconnected bridge silently drops events.
package bridge

import (
	"errors"
	"strings"
	"time"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "devbar"

// Bridge errors.
var (
	// ErrInvalidMessage is returned when a message body cannot be decoded.
	ErrInvalidMessage = errors.New("invalid bridge message")

	// ErrNotConnected is returned when watching without a connection.
	ErrNotConnected = errors.New("bridge not connected")
)

// Nop is a bridge that drops every event.
type Nop struct{}

// Notify implements overlay.Notifier.
func (Nop) Notify(string, any) {}

// Message is a decoded bridge event.
type Message struct {
	// Subject is the transport subject the message was received on.
	Subject string

	// Event is the full event name, e.g. "devbar:inspect:toggled".
	Event string

	// Plugin is the plugin id part of the event name.
	Plugin string

	// Kind is the event family, e.g. "toggled".
	Kind string

	// Time is when the event was published.
	Time time.Time

	// Payload is the raw JSON payload, or empty.
	Payload string
}

// splitEvent splits "{id}:{kind}" at the last colon. Plugin ids may contain
// colons themselves.
func splitEvent(event string) (plugin, kind string) {
	i := strings.LastIndexByte(event, ':')
	if i < 0 {
		return "", event
	}
	return event[:i], event[i+1:]
}

// subjectToken makes an event name usable as a single subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
