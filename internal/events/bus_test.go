package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan WorkerSpawnedEvent, 1)

	unsub := bus.Subscribe(func(e WorkerSpawnedEvent) {
		received <- e
	})
	defer unsub()

	event := WorkerSpawnedEvent{
		Role:      "axis-x",
		PID:       4242,
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got != event {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan WorkerReapedEvent, 1)
	received2 := make(chan WorkerReapedEvent, 1)

	unsub1 := bus.Subscribe(func(e WorkerReapedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e WorkerReapedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(WorkerReapedEvent{Role: "world", Status: "exit status 0"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ReapAnomalyEvent, 1)

	unsub := bus.Subscribe(func(e ReapAnomalyEvent) {
		received <- e
	})

	bus.Publish(ReapAnomalyEvent{Kind: "unmatched", PID: 1})
	<-received

	unsub()

	bus.Publish(ReapAnomalyEvent{Kind: "unmatched", PID: 2})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	resetReceived := make(chan bool, 1)
	expiredReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ WatchdogResetEvent) {
		resetReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ WatchdogExpiredEvent) {
		expiredReceived <- true
	})
	defer unsub2()

	bus.Publish(WatchdogResetEvent{File: "axis-x.log"})
	<-resetReceived

	select {
	case <-expiredReceived:
		t.Fatal("Expiry subscriber should NOT have received WatchdogResetEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(WatchdogExpiredEvent{TimeoutSeconds: 60})
	<-expiredReceived

	select {
	case <-resetReceived:
		t.Fatal("Reset subscriber should NOT have received WatchdogExpiredEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ WatchdogResetEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(WatchdogResetEvent{
					File:      "world.log",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_UnknownHandlerIsNoop(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestEventJSONSerialization(t *testing.T) {
	tests := []struct {
		name  string
		event any
		key   string
	}{
		{"WorkerSpawnedEvent", WorkerSpawnedEvent{Role: "axis-z", PID: 7}, "pid"},
		{"ReapAnomalyEvent", ReapAnomalyEvent{Kind: "lost", PID: 9, Role: "world"}, "kind"},
		{"ShutdownCompletedEvent", ShutdownCompletedEvent{Reaped: 5, DurationSeconds: 0.1}, "duration_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result map[string]any
			if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
				t.Fatalf("Failed to unmarshal: %v", unmarshalErr)
			}

			if _, ok := result[tt.key]; !ok {
				t.Errorf("missing key %q in %s", tt.key, data)
			}
		})
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[TerminationRequestedEvent](bus, ch)
	defer unsub()

	event := TerminationRequestedEvent{Source: "signal", Signal: "terminated"}
	bus.Publish(event)

	received := <-ch
	got, ok := received.(TerminationRequestedEvent)
	if !ok {
		t.Fatalf("Expected TerminationRequestedEvent, got %T", received)
	}
	if got.Source != event.Source {
		t.Errorf("Expected source %s, got %s", event.Source, got.Source)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[ShutdownStartedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(ShutdownStartedEvent{Reason: "expired"})
		done <- true
	}()

	<-done
}

func TestSubscribeAll(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeAll(bus, ch)
	defer unsub()

	bus.Publish(ShutdownStartedEvent{Reason: "terminated"})
	bus.Publish(ShutdownCompletedEvent{Reaped: 5})

	seen := map[uint32]bool{}
	for range 2 {
		select {
		case ev := <-ch:
			seen[ev.(Event).Type()] = true
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for events")
		}
	}
	if !seen[TypeShutdownStarted] || !seen[TypeShutdownCompleted] {
		t.Errorf("seen = %v", seen)
	}
}
