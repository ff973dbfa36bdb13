package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(FrameDroppedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic, so dispatch on the concrete type
	switch e := ev.(type) {
	case FrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case DropReportEvent:
		event.Publish(b.dispatcher, e)
	case PrerollChangedEvent:
		event.Publish(b.dispatcher, e)
	case FormatErrorEvent:
		event.Publish(b.dispatcher, e)
	case SessionStateEvent:
		event.Publish(b.dispatcher, e)
	case PacingReloadedEvent:
		event.Publish(b.dispatcher, e)
	case PacerMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e FrameDroppedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DropReportEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PrerollChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FormatErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PacingReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PacerMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type, nothing to unsubscribe
		return func() {}
	}
}
