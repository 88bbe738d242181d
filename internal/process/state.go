package process

import (
	"time"

	"github.com/smazurov/gantry/internal/worker"
)

// State represents the current state of a worker.
type State string

// Worker states.
const (
	StateStarting State = "starting" // Being spawned
	StateRunning  State = "running"  // Spawned, not yet reaped
	StateStopping State = "stopping" // Termination requested
	StateExited   State = "exited"   // Reaped
	StateError    State = "error"    // Failed to spawn
)

// Info is a snapshot of one worker descriptor.
type Info struct {
	Role       worker.Role `json:"role"`
	PID        int         `json:"pid"`
	State      State       `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
	ExitedAt   time.Time   `json:"exited_at,omitzero"`
	ExitStatus string      `json:"exit_status,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}
