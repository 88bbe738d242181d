// Package supervisor runs the plant: it wires the channel fabric, spawns the
// workers, watches the log directory for inactivity and shuts everything down
// in a fixed order, reaping every worker exactly once.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/gantry/internal/config"
	"github.com/smazurov/gantry/internal/events"
	"github.com/smazurov/gantry/internal/process"
	"github.com/smazurov/gantry/internal/watchdog"
	"github.com/smazurov/gantry/internal/worker"
)

// DefaultKillTimeout bounds how long shutdown waits for workers that ignore
// their termination request before killing them.
const DefaultKillTimeout = 10 * time.Second

// ErrUnknownAxis is returned for an axis name other than x or z.
var ErrUnknownAxis = errors.New("unknown axis")

// Phase is the supervisor lifecycle stage.
type Phase string

// Supervisor phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseSpawning Phase = "spawning"
	PhaseWatching Phase = "watching"
	PhaseStopping Phase = "stopping"
	PhaseStopped  Phase = "stopped"
)

// AxisSpec parameterizes one axis controller.
type AxisSpec struct {
	Velocity float64
	Min      float64
	Max      float64
}

// Config is the plant configuration.
type Config struct {
	// Executable is re-executed with a role subcommand for every worker.
	Executable string
	// Terminal hosts interactive consoles; empty runs them directly.
	Terminal string

	Sampling time.Duration
	Watchdog time.Duration
	Noise    float64
	AxisX    AxisSpec
	AxisZ    AxisSpec

	ReadinessBarrier bool
	ReadyTimeout     time.Duration
	KillTimeout      time.Duration

	LogLevel  string
	LogFormat string
	RunID     string
}

// ConfigFromOptions maps validated options onto a plant configuration.
func ConfigFromOptions(o config.Options, executable, runID string) Config {
	return Config{
		Executable:       executable,
		Terminal:         o.Terminal,
		Sampling:         o.Sampling(),
		Watchdog:         o.Watchdog(),
		Noise:            o.Noise,
		AxisX:            AxisSpec{Velocity: o.AxisXVelocity, Min: o.AxisXMin, Max: o.AxisXMax},
		AxisZ:            AxisSpec{Velocity: o.AxisZVelocity, Min: o.AxisZMin, Max: o.AxisZMax},
		ReadinessBarrier: o.ReadinessBarrier,
		ReadyTimeout:     o.ReadyTimeout(),
		KillTimeout:      DefaultKillTimeout,
		LogLevel:         o.LoggingLevel,
		LogFormat:        o.LoggingFormat,
		RunID:            runID,
	}
}

// Result summarizes one plant run.
type Result struct {
	Outcome  watchdog.Outcome
	Reap     process.ReapReport
	Shutdown time.Duration
}

// Supervisor owns the plant for one run.
type Supervisor struct {
	cfg       Config
	dir       *LogDir
	bus       *events.Bus
	logger    *slog.Logger
	group     *process.Group
	watchdog  *watchdog.Watchdog
	term      *Termination
	masterPID int

	mu    sync.RWMutex
	phase Phase
}

// New creates a supervisor logging into dir. bus may be nil.
func New(cfg Config, dir *LogDir, bus *events.Bus, logger *slog.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	launcher, err := process.NewLauncher(cfg.Executable, cfg.Terminal)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:       cfg,
		dir:       dir,
		bus:       bus,
		logger:    logger,
		masterPID: os.Getpid(),
		phase:     PhaseIdle,
	}
	s.group = process.NewGroup(launcher, &process.GroupOptions{
		OnAnomaly:   s.onAnomaly,
		KillTimeout: cfg.KillTimeout,
		Logger:      logger,
	})
	s.watchdog = watchdog.New(dir.Path, cfg.Watchdog, logger,
		watchdog.WithIgnore(MasterLogFile),
		watchdog.WithResetHandler(s.onWatchdogReset),
	)
	s.term = NewTermination(logger, s.onTerminationRequest)
	return s, nil
}

// Run spawns the plant, waits for inactivity or a termination request and
// shuts it down. Setup failures are returned as errors after every worker
// already spawned has been reaped.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	stop := s.term.Notify()
	defer stop()

	if s.dir.Existed {
		s.logger.Warn("Log directory already exists, reusing it", "dir", s.dir.Path)
	}
	s.logger.Info("Starting plant", "pid", s.masterPID,
		"sampling", s.cfg.Sampling, "watchdog", s.cfg.Watchdog, "readiness_barrier", s.cfg.ReadinessBarrier)

	topo, err := buildTopology(s.dir)
	if err != nil {
		s.setPhase(PhaseStopped)
		return Result{}, fmt.Errorf("build topology: %w", err)
	}
	defer topo.release()

	s.setPhase(PhaseSpawning)
	if err := s.spawnAll(topo); err != nil {
		s.logger.Error("Spawn failed, stopping workers already running", "error", err)
		topo.release()
		result := s.shutdown("spawn failure")
		return result, err
	}

	// Every endpoint now has its owner; drop the local copies so that EOF
	// propagates when an owner exits.
	if err := topo.release(); err != nil {
		s.logger.Warn("Failed to release local endpoints", "error", err)
	}

	s.setPhase(PhaseWatching)
	outcome, err := s.watchdog.Run(ctx, s.term)
	if err != nil {
		s.logger.Error("Watchdog failed, stopping plant", "error", err)
		result := s.shutdown("watchdog failure")
		return result, fmt.Errorf("watchdog: %w", err)
	}

	if outcome == watchdog.OutcomeExpired {
		status := s.watchdog.Status()
		s.logger.Warn("No activity within watchdog timeout", "timeout", s.cfg.Watchdog, "resets", status.Resets)
		s.publish(events.WatchdogExpiredEvent{
			TimeoutSeconds: s.cfg.Watchdog.Seconds(),
			Resets:         status.Resets,
			Timestamp:      now(),
		})
	}

	result := s.shutdown(string(outcome))
	result.Outcome = outcome
	return result, nil
}

// shutdown requests termination of every worker in order and reaps them.
func (s *Supervisor) shutdown(reason string) Result {
	s.setPhase(PhaseStopping)
	start := time.Now()
	s.logger.Info("Shutting down plant", "reason", reason)
	s.publish(events.ShutdownStartedEvent{Reason: reason, Timestamp: now()})

	if errs := s.group.Terminate(ShutdownOrder...); len(errs) > 0 {
		s.logger.Warn("Some termination requests failed", "failed", len(errs))
	}

	report, err := s.group.Reap()
	if err != nil {
		s.logger.Error("Reap failed", "error", err)
	}
	for _, info := range report.Reaped {
		s.publish(events.WorkerReapedEvent{
			Role:      string(info.Role),
			PID:       info.PID,
			Status:    info.ExitStatus,
			Timestamp: now(),
		})
	}

	elapsed := time.Since(start)
	s.publish(events.ShutdownCompletedEvent{
		Reaped:          len(report.Reaped),
		Anomalies:       len(report.Anomalies),
		Killed:          len(report.Killed),
		DurationSeconds: elapsed.Seconds(),
		Timestamp:       now(),
	})
	s.logger.Info("Plant stopped", "reaped", len(report.Reaped), "anomalies", len(report.Anomalies),
		"killed", len(report.Killed), "duration", elapsed)
	s.setPhase(PhaseStopped)

	return Result{Reap: report, Shutdown: elapsed}
}

// RunID returns the identifier shared by every process of this run.
func (s *Supervisor) RunID() string {
	return s.cfg.RunID
}

// Phase returns the current lifecycle stage.
func (s *Supervisor) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Supervisor) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Workers returns a snapshot of every worker descriptor in spawn order.
func (s *Supervisor) Workers() []process.Info {
	return s.group.List()
}

// Watchdog returns a snapshot of the watchdog state.
func (s *Supervisor) Watchdog() watchdog.Status {
	return s.watchdog.Status()
}

// RequestAxis delivers an out-of-band request to the named axis ("x" or "z").
func (s *Supervisor) RequestAxis(axis string, r worker.Request) error {
	role, err := AxisRole(axis)
	if err != nil {
		return err
	}
	if err := s.group.Signal(role, r.Signal()); err != nil {
		return err
	}
	s.logger.Info("Axis request sent", "axis", role, "request", r)
	return nil
}

// RequestShutdown has the same effect as an external termination signal.
func (s *Supervisor) RequestShutdown(source string) {
	s.term.Request(source, "")
}

// AxisRole maps an axis name onto its worker role.
func AxisRole(axis string) (worker.Role, error) {
	switch strings.ToLower(axis) {
	case "x":
		return worker.RoleAxisX, nil
	case "z":
		return worker.RoleAxisZ, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}
}

func (s *Supervisor) onAnomaly(a process.Anomaly) {
	s.publish(events.ReapAnomalyEvent{
		Kind:      string(a.Kind),
		PID:       a.PID,
		Role:      string(a.Role),
		Status:    a.Status,
		Timestamp: now(),
	})
}

func (s *Supervisor) onWatchdogReset(name string) {
	s.publish(events.WatchdogResetEvent{File: name, Timestamp: now()})
}

func (s *Supervisor) onTerminationRequest(source, sig string) {
	s.publish(events.TerminationRequestedEvent{Source: source, Signal: sig, Timestamp: now()})
}

func (s *Supervisor) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
