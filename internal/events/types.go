package events

// Event type constants for kelindar/event.
const (
	TypeWorkerSpawned uint32 = iota + 1
	TypeWorkerReaped
	TypeReapAnomaly
	TypeWatchdogReset
	TypeWatchdogExpired
	TypeTerminationRequested
	TypeShutdownStarted
	TypeShutdownCompleted
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// WorkerSpawnedEvent is published after a worker process has started.
type WorkerSpawnedEvent struct {
	Role      string `json:"role" example:"axis-x" doc:"Worker role"`
	PID       int    `json:"pid" example:"4242" doc:"Process id"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WorkerSpawnedEvent.
func (e WorkerSpawnedEvent) Type() uint32 { return TypeWorkerSpawned }

// WorkerReapedEvent is published when a worker has been collected.
type WorkerReapedEvent struct {
	Role      string `json:"role" example:"axis-x" doc:"Worker role"`
	PID       int    `json:"pid" example:"4242" doc:"Process id"`
	Status    string `json:"status" example:"exit status 0" doc:"Exit status"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WorkerReapedEvent.
func (e WorkerReapedEvent) Type() uint32 { return TypeWorkerReaped }

// ReapAnomalyEvent reports a reap that did not match a worker, or a worker
// that vanished without being reaped.
type ReapAnomalyEvent struct {
	Kind      string `json:"kind" example:"unmatched" doc:"Anomaly kind: unmatched, lost"`
	PID       int    `json:"pid" example:"4242" doc:"Process id"`
	Role      string `json:"role,omitempty" example:"world" doc:"Worker role, when known"`
	Status    string `json:"status" example:"exit status 1" doc:"Exit status"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ReapAnomalyEvent.
func (e ReapAnomalyEvent) Type() uint32 { return TypeReapAnomaly }

// WatchdogResetEvent is published on every log activity seen by the watchdog.
type WatchdogResetEvent struct {
	File      string `json:"file" example:"axis-x.log" doc:"Log file that changed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WatchdogResetEvent.
func (e WatchdogResetEvent) Type() uint32 { return TypeWatchdogReset }

// WatchdogExpiredEvent is published when the inactivity timeout elapsed.
type WatchdogExpiredEvent struct {
	TimeoutSeconds float64 `json:"timeout_seconds" example:"60" doc:"Configured inactivity timeout"`
	Resets         uint64  `json:"resets" example:"12" doc:"Resets seen before expiry"`
	Timestamp      string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WatchdogExpiredEvent.
func (e WatchdogExpiredEvent) Type() uint32 { return TypeWatchdogExpired }

// TerminationRequestedEvent is published for every external termination
// request, including repeated ones.
type TerminationRequestedEvent struct {
	Source    string `json:"source" example:"signal" doc:"Request source: signal, api"`
	Signal    string `json:"signal,omitempty" example:"terminated" doc:"Signal name, when source is signal"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TerminationRequestedEvent.
func (e TerminationRequestedEvent) Type() uint32 { return TypeTerminationRequested }

// ShutdownStartedEvent is published before termination requests are sent.
type ShutdownStartedEvent struct {
	Reason    string `json:"reason" example:"expired" doc:"Why the plant is shutting down"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ShutdownStartedEvent.
func (e ShutdownStartedEvent) Type() uint32 { return TypeShutdownStarted }

// ShutdownCompletedEvent is published after every worker has been reaped.
type ShutdownCompletedEvent struct {
	Reaped          int     `json:"reaped" example:"5" doc:"Workers reaped"`
	Anomalies       int     `json:"anomalies" example:"0" doc:"Reap anomalies"`
	Killed          int     `json:"killed" example:"0" doc:"Workers killed after ignoring termination"`
	DurationSeconds float64 `json:"duration_seconds" example:"0.12" doc:"Time from first request to last reap"`
	Timestamp       string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ShutdownCompletedEvent.
func (e ShutdownCompletedEvent) Type() uint32 { return TypeShutdownCompleted }
