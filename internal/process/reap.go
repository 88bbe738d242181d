package process

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/gantry/internal/worker"
)

// AnomalyKind classifies a reap anomaly.
type AnomalyKind string

const (
	// AnomalyUnmatched is a reaped pid that belongs to no worker.
	AnomalyUnmatched AnomalyKind = "unmatched"
	// AnomalyLost is a worker the kernel reported gone without a reap.
	AnomalyLost AnomalyKind = "lost"
)

// Anomaly describes a reap that could not be accounted for.
type Anomaly struct {
	Kind   AnomalyKind
	PID    int
	Role   worker.Role
	Status string
}

// ReapReport summarizes one Reap call.
type ReapReport struct {
	Reaped    []Info
	Anomalies []Anomaly
	Killed    []worker.Role
}

// Reap blocks until every spawned worker has been collected from the process
// group. Each worker is accounted for exactly once; pids that match no worker
// and workers the kernel no longer knows about are reported as anomalies.
func (g *Group) Reap() (ReapReport, error) {
	var report ReapReport

	if g.opts.KillTimeout > 0 {
		killer := time.AfterFunc(g.opts.KillTimeout, func() {
			for _, role := range g.killStragglers() {
				g.logger.Warn("Worker ignored termination request, killed", "role", role)
			}
		})
		defer killer.Stop()
	}

	for g.Alive() > 0 {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-g.pgid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			report.Anomalies = append(report.Anomalies, g.markLost()...)
			break
		}
		if err != nil {
			return report, fmt.Errorf("wait for process group %d: %w", g.pgid, err)
		}

		status := describeStatus(ws)
		w := g.byPID(pid)
		if w == nil {
			a := Anomaly{Kind: AnomalyUnmatched, PID: pid, Status: status}
			report.Anomalies = append(report.Anomalies, a)
			g.notifyAnomaly(a)
			continue
		}

		g.mu.Lock()
		w.exitStatus = status
		g.mu.Unlock()
		g.setState(w, StateExited, nil)

		info, _ := g.Info(w.role)
		report.Reaped = append(report.Reaped, info)
		g.logger.Info("Worker reaped", "role", w.role, "pid", pid, "status", status)
	}

	g.mu.RLock()
	for _, role := range g.order {
		if g.workers[role].exitStatus == "killed" {
			report.Killed = append(report.Killed, role)
		}
	}
	g.mu.RUnlock()

	return report, nil
}

// byPID returns the unreaped worker with pid, or nil.
func (g *Group) byPID(pid int) *managedWorker {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, w := range g.workers {
		if w.pid == pid && !w.reaped() {
			return w
		}
	}
	return nil
}

// markLost closes out workers that can no longer be waited for.
func (g *Group) markLost() []Anomaly {
	g.mu.RLock()
	var lost []*managedWorker
	for _, role := range g.order {
		w := g.workers[role]
		if w.pid > 0 && !w.reaped() {
			lost = append(lost, w)
		}
	}
	g.mu.RUnlock()

	anomalies := make([]Anomaly, 0, len(lost))
	for _, w := range lost {
		a := Anomaly{Kind: AnomalyLost, PID: w.pid, Role: w.role, Status: "unknown"}
		g.mu.Lock()
		w.exitStatus = a.Status
		g.mu.Unlock()
		g.setState(w, StateExited, errors.New("no child process to reap"))
		anomalies = append(anomalies, a)
		g.notifyAnomaly(a)
	}
	return anomalies
}

// killStragglers sends SIGKILL to every worker not yet reaped.
func (g *Group) killStragglers() []worker.Role {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var killed []worker.Role
	for _, role := range g.order {
		w := g.workers[role]
		if w.pid <= 0 || w.reaped() {
			continue
		}
		if err := unix.Kill(w.pid, unix.SIGKILL); err == nil {
			killed = append(killed, role)
		}
	}
	return killed
}

func describeStatus(ws unix.WaitStatus) string {
	switch {
	case ws.Exited():
		return fmt.Sprintf("exit status %d", ws.ExitStatus())
	case ws.Signaled():
		if ws.Signal() == unix.SIGKILL {
			return "killed"
		}
		return "signal: " + unix.SignalName(ws.Signal())
	default:
		return "unknown"
	}
}
