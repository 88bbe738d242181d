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
// Usage: bus.Publish(WorkerSpawnedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case WorkerSpawnedEvent:
		event.Publish(b.dispatcher, e)
	case WorkerReapedEvent:
		event.Publish(b.dispatcher, e)
	case ReapAnomalyEvent:
		event.Publish(b.dispatcher, e)
	case WatchdogResetEvent:
		event.Publish(b.dispatcher, e)
	case WatchdogExpiredEvent:
		event.Publish(b.dispatcher, e)
	case TerminationRequestedEvent:
		event.Publish(b.dispatcher, e)
	case ShutdownStartedEvent:
		event.Publish(b.dispatcher, e)
	case ShutdownCompletedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e WorkerReapedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(WorkerSpawnedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WorkerReapedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ReapAnomalyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WatchdogResetEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WatchdogExpiredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TerminationRequestedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ShutdownStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ShutdownCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
