// Package metrics provides Prometheus metrics for the plant supervisor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/gantry/internal/events"
)

var (
	workersSpawned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "workers_spawned_total",
		Help:      "Workers spawned",
	}, []string{"role"})

	workersReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "workers_reaped_total",
		Help:      "Workers reaped",
	}, []string{"role"})

	workerUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "worker_up",
		Help:      "Whether a worker is spawned and not yet reaped",
	}, []string{"role"})

	reapAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "reap_anomalies_total",
		Help:      "Reaps that could not be matched to a worker, by kind",
	}, []string{"kind"})

	watchdogResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "watchdog",
		Name:      "resets_total",
		Help:      "Log activity events that reset the watchdog",
	}, []string{"file"})

	watchdogExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "watchdog",
		Name:      "expirations_total",
		Help:      "Watchdog inactivity expirations",
	})

	terminationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "termination_requests_total",
		Help:      "External termination requests, by source",
	}, []string{"source"})

	workersKilled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "workers_killed_total",
		Help:      "Workers killed after ignoring a termination request",
	})

	shutdownDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gantry",
		Subsystem: "supervisor",
		Name:      "shutdown_duration_seconds",
		Help:      "Duration of the last shutdown, from first request to last reap",
	})
)

// Subscribe feeds the supervisor metrics from bus. The returned function
// removes every subscription.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.WorkerSpawnedEvent) {
			workersSpawned.WithLabelValues(e.Role).Inc()
			workerUp.WithLabelValues(e.Role).Set(1)
		}),
		bus.Subscribe(func(e events.WorkerReapedEvent) {
			workersReaped.WithLabelValues(e.Role).Inc()
			workerUp.WithLabelValues(e.Role).Set(0)
		}),
		bus.Subscribe(func(e events.ReapAnomalyEvent) {
			reapAnomalies.WithLabelValues(e.Kind).Inc()
			if e.Role != "" {
				workerUp.WithLabelValues(e.Role).Set(0)
			}
		}),
		bus.Subscribe(func(e events.WatchdogResetEvent) {
			watchdogResets.WithLabelValues(e.File).Inc()
		}),
		bus.Subscribe(func(_ events.WatchdogExpiredEvent) {
			watchdogExpirations.Inc()
		}),
		bus.Subscribe(func(e events.TerminationRequestedEvent) {
			terminationRequests.WithLabelValues(e.Source).Inc()
		}),
		bus.Subscribe(func(e events.ShutdownCompletedEvent) {
			workersKilled.Add(float64(e.Killed))
			shutdownDuration.Set(e.DurationSeconds)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
