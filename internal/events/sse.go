package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// Used by the SSE endpoint, where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeAll forwards every lifecycle event to ch and returns a function
// removing all subscriptions.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[WorkerSpawnedEvent](bus, ch),
		SubscribeToChannel[WorkerReapedEvent](bus, ch),
		SubscribeToChannel[ReapAnomalyEvent](bus, ch),
		SubscribeToChannel[WatchdogResetEvent](bus, ch),
		SubscribeToChannel[WatchdogExpiredEvent](bus, ch),
		SubscribeToChannel[TerminationRequestedEvent](bus, ch),
		SubscribeToChannel[ShutdownStartedEvent](bus, ch),
		SubscribeToChannel[ShutdownCompletedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
