// Package watchdog detects plant inactivity by watching the log directory.
//
// Every worker writes its log into the same directory. A write or create
// event on any of those files counts as activity and restarts the countdown.
// When the countdown elapses without activity the watchdog reports Expired;
// a pending termination request makes it report Terminated instead.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var errWatcherClosed = errors.New("watcher closed")

// Outcome is the reason Run returned.
type Outcome string

// Watchdog outcomes.
const (
	OutcomeNone       Outcome = ""
	OutcomeExpired    Outcome = "expired"
	OutcomeTerminated Outcome = "terminated"
)

// Terminator reports external termination requests. Wake is poked after
// every request; Requested is sticky.
type Terminator interface {
	Requested() bool
	Wake() <-chan struct{}
}

// Status is a snapshot of the watchdog state.
type Status struct {
	Dir          string        `json:"dir"`
	Timeout      time.Duration `json:"timeout"`
	Running      bool          `json:"running"`
	LastActivity time.Time     `json:"last_activity,omitzero"`
	LastFile     string        `json:"last_file,omitempty"`
	Resets       uint64        `json:"resets"`
	Outcome      Outcome       `json:"outcome,omitempty"`
}

// Watchdog waits for log directory activity.
type Watchdog struct {
	dir     string
	timeout time.Duration
	ignore  map[string]bool
	onReset func(name string)
	logger  *slog.Logger

	mu           sync.RWMutex
	running      bool
	lastActivity time.Time
	lastFile     string
	resets       uint64
	outcome      Outcome
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithIgnore excludes files (by base name) from counting as activity.
func WithIgnore(names ...string) Option {
	return func(w *Watchdog) {
		for _, n := range names {
			w.ignore[n] = true
		}
	}
}

// WithResetHandler sets a callback invoked with the base name of the file
// whose activity reset the countdown.
func WithResetHandler(handler func(name string)) Option {
	return func(w *Watchdog) {
		w.onReset = handler
	}
}

// New creates a watchdog for dir.
func New(dir string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watchdog{
		dir:     dir,
		timeout: timeout,
		ignore:  make(map[string]bool),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Status returns a snapshot of the watchdog state.
func (w *Watchdog) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Status{
		Dir:          w.dir,
		Timeout:      w.timeout,
		Running:      w.running,
		LastActivity: w.lastActivity,
		LastFile:     w.lastFile,
		Resets:       w.resets,
		Outcome:      w.outcome,
	}
}

// Run blocks until the countdown expires, a termination request is seen, or
// ctx is cancelled. Context cancellation is reported as OutcomeTerminated.
// A nil term disables termination requests.
func (w *Watchdog) Run(ctx context.Context, term Terminator) (Outcome, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return OutcomeNone, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return OutcomeNone, fmt.Errorf("watch %s: %w", w.dir, err)
	}

	var wake <-chan struct{}
	if term != nil {
		wake = term.Wake()
	}

	w.mu.Lock()
	w.running = true
	w.outcome = OutcomeNone
	w.mu.Unlock()

	w.logger.Info("Watchdog started", "dir", w.dir, "timeout", w.timeout)

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		if term != nil && term.Requested() {
			return w.finish(OutcomeTerminated), nil
		}

		select {
		case <-ctx.Done():
			return w.finish(OutcomeTerminated), nil

		case <-wake:
			// Re-checked at the top of the loop.

		case event, ok := <-watcher.Events:
			if !ok {
				return w.finish(OutcomeTerminated), errWatcherClosed
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if w.ignore[name] {
				continue
			}
			timer.Reset(w.timeout)
			w.recordActivity(name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return w.finish(OutcomeTerminated), errWatcherClosed
			}
			w.logger.Warn("Watchdog watcher error", "error", err)

		case <-timer.C:
			return w.finish(OutcomeExpired), nil
		}
	}
}

func (w *Watchdog) recordActivity(name string) {
	w.mu.Lock()
	w.lastActivity = time.Now()
	w.lastFile = name
	w.resets++
	w.mu.Unlock()

	w.logger.Debug("Watchdog reset", "file", name)
	if w.onReset != nil {
		w.onReset(name)
	}
}

func (w *Watchdog) finish(outcome Outcome) Outcome {
	w.mu.Lock()
	w.running = false
	w.outcome = outcome
	resets := w.resets
	w.mu.Unlock()

	w.logger.Info("Watchdog finished", "outcome", outcome, "resets", resets)
	return outcome
}
