package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/gantry/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	if s.eventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of worker lifecycle, watchdog and shutdown events",
		Tags:        []string{"events"},
		Security:    []map[string][]string{},
	}, map[string]any{
		"worker-spawned":        events.WorkerSpawnedEvent{},
		"worker-reaped":         events.WorkerReapedEvent{},
		"reap-anomaly":          events.ReapAnomalyEvent{},
		"watchdog-reset":        events.WatchdogResetEvent{},
		"watchdog-expired":      events.WatchdogExpiredEvent{},
		"termination-requested": events.TerminationRequestedEvent{},
		"shutdown-started":      events.ShutdownStartedEvent{},
		"shutdown-completed":    events.ShutdownCompletedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribe := events.SubscribeAll(s.eventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
