package logging

import (
	"sync"
	"time"
)

// MinThrottleInterval is the shortest spacing allowed between two throttled lines.
const MinThrottleInterval = 200 * time.Millisecond

// Throttle rate-limits periodic status lines so a fast control loop does not
// flood its log file. The interval is max(period, MinThrottleInterval).
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottle creates a throttle for a loop running every period.
func NewThrottle(period time.Duration) *Throttle {
	return &Throttle{
		interval: max(period, MinThrottleInterval),
		now:      time.Now,
	}
}

// Interval returns the minimum spacing between allowed lines.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Allow reports whether a line may be written now and, if so, records it.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
