package event

import "errors"

// Sentinel errors for event channels.
var (
	// ErrChannelClosed is returned when operating on a closed channel.
	ErrChannelClosed = errors.New("event channel is closed")

	// ErrInvalidType is returned when an event or subscription has an empty type.
	ErrInvalidType = errors.New("invalid event type")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriptionNotFound is returned when trying to unsubscribe a non-existent subscription.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// PanicError wraps a panic value recovered from a handler.
type PanicError struct {
	// SubscriptionID is the ID of the subscription whose handler panicked.
	SubscriptionID string

	// Type is the event type being delivered.
	Type Type

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "handler panic for subscription " + e.SubscriptionID + " on " + string(e.Type)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
