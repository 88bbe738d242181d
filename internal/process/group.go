package process

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/gantry/internal/worker"
)

// StateChangeCallback is called when a worker changes state.
type StateChangeCallback func(role worker.Role, oldState, newState State, err error)

// AnomalyCallback is called for every reap that cannot be matched to a
// worker, and for workers the kernel no longer knows about.
type AnomalyCallback func(a Anomaly)

// GroupOptions configures a Group.
type GroupOptions struct {
	// OnStateChange is called on every worker state transition (optional).
	OnStateChange StateChangeCallback

	// OnAnomaly is called for reap anomalies (optional).
	OnAnomaly AnomalyCallback

	// KillTimeout is how long Reap waits before sending SIGKILL to workers
	// still alive. Zero waits forever.
	KillTimeout time.Duration

	// Logger for group operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// managedWorker is the descriptor of one spawned worker.
type managedWorker struct {
	role       worker.Role
	pid        int
	state      State
	startedAt  time.Time
	exitedAt   time.Time
	exitStatus string
	lastError  error
}

func (w *managedWorker) info() Info {
	info := Info{
		Role:       w.role,
		PID:        w.pid,
		State:      w.state,
		StartedAt:  w.startedAt,
		ExitedAt:   w.exitedAt,
		ExitStatus: w.exitStatus,
	}
	if w.lastError != nil {
		info.LastError = w.lastError.Error()
	}
	return info
}

func (w *managedWorker) reaped() bool {
	return w.state == StateExited
}

// Group spawns workers into the caller's process group and reaps them.
type Group struct {
	launcher *Launcher
	opts     GroupOptions
	logger   *slog.Logger
	pgid     int

	mu      sync.RWMutex
	workers map[worker.Role]*managedWorker
	order   []worker.Role
}

// NewGroup creates an empty group.
func NewGroup(launcher *Launcher, opts *GroupOptions) *Group {
	g := &Group{
		launcher: launcher,
		pgid:     unix.Getpgrp(),
		workers:  make(map[worker.Role]*managedWorker),
	}
	if opts != nil {
		g.opts = *opts
	}
	g.logger = g.opts.Logger
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Spawn starts a worker for role and returns its pid.
func (g *Group) Spawn(role worker.Role, args []string, files []*os.File) (int, error) {
	g.mu.Lock()
	if w, exists := g.workers[role]; exists && !w.reaped() && w.state != StateError {
		g.mu.Unlock()
		return 0, fmt.Errorf("worker %s already running with pid %d", role, w.pid)
	}
	w := &managedWorker{role: role, state: StateStarting, startedAt: time.Now()}
	if _, exists := g.workers[role]; !exists {
		g.order = append(g.order, role)
	}
	g.workers[role] = w
	g.mu.Unlock()
	g.notifyStateChange(role, "", StateStarting, nil)

	cmd := g.launcher.Command(role, args, files)
	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("spawn %s: %w", role, err)
		g.setState(w, StateError, err)
		return 0, err
	}

	pid := cmd.Process.Pid
	// The pid is reaped through the group wait, not through cmd.Wait.
	_ = cmd.Process.Release()

	g.mu.Lock()
	w.pid = pid
	g.mu.Unlock()
	g.setState(w, StateRunning, nil)

	g.logger.Info("Worker spawned", "role", role, "pid", pid, "argv", cmd.Args)
	return pid, nil
}

// PID returns the pid of role, or 0 if it was never spawned.
func (g *Group) PID(role worker.Role) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if w, ok := g.workers[role]; ok {
		return w.pid
	}
	return 0
}

// Info returns a snapshot of one worker.
func (g *Group) Info(role worker.Role) (Info, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok := g.workers[role]
	if !ok {
		return Info{}, false
	}
	return w.info(), true
}

// List returns snapshots of all workers in spawn order.
func (g *Group) List() []Info {
	g.mu.RLock()
	defer g.mu.RUnlock()
	infos := make([]Info, 0, len(g.order))
	for _, role := range g.order {
		infos = append(infos, g.workers[role].info())
	}
	return infos
}

// Alive returns the number of spawned workers not yet reaped.
func (g *Group) Alive() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pendingLocked()
}

func (g *Group) pendingLocked() int {
	n := 0
	for _, w := range g.workers {
		if w.pid > 0 && !w.reaped() {
			n++
		}
	}
	return n
}

// Signal delivers sig to a running worker.
func (g *Group) Signal(role worker.Role, sig syscall.Signal) error {
	g.mu.RLock()
	w, ok := g.workers[role]
	var pid int
	live := false
	if ok {
		pid = w.pid
		live = pid > 0 && !w.reaped()
	}
	g.mu.RUnlock()

	if !ok || pid == 0 {
		return fmt.Errorf("worker %s not spawned", role)
	}
	if !live {
		return fmt.Errorf("worker %s already reaped", role)
	}
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal %s to %s (pid %d): %w", sig, role, pid, err)
	}
	return nil
}

// Terminate sends SIGTERM to each role in order. A failure for one worker is
// logged and collected but does not stop the others.
func (g *Group) Terminate(roles ...worker.Role) []error {
	var errs []error
	for _, role := range roles {
		g.mu.RLock()
		w, ok := g.workers[role]
		g.mu.RUnlock()
		if !ok {
			continue
		}

		if err := g.Signal(role, unix.SIGTERM); err != nil {
			g.logger.Warn("Failed to request termination", "role", role, "error", err)
			errs = append(errs, err)
			continue
		}
		g.setState(w, StateStopping, nil)
		g.logger.Info("Termination requested", "role", role, "pid", w.pid)
	}
	return errs
}

func (g *Group) setState(w *managedWorker, state State, err error) {
	g.mu.Lock()
	old := w.state
	w.state = state
	if err != nil {
		w.lastError = err
	}
	if state == StateExited {
		w.exitedAt = time.Now()
	}
	g.mu.Unlock()
	g.notifyStateChange(w.role, old, state, err)
}

// notifyStateChange invokes the OnStateChange callback if configured.
func (g *Group) notifyStateChange(role worker.Role, oldState, newState State, err error) {
	if g.opts.OnStateChange != nil {
		g.opts.OnStateChange(role, oldState, newState, err)
	}
}

func (g *Group) notifyAnomaly(a Anomaly) {
	g.logger.Warn("Reap anomaly", "kind", a.Kind, "pid", a.PID, "role", a.Role, "status", a.Status)
	if g.opts.OnAnomaly != nil {
		g.opts.OnAnomaly(a)
	}
}
