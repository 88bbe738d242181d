// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Every gantry process logs through slog. Records are routed to:
//   - the role's own file in the log directory (Config.Sink), which is also
//     what the supervisor watchdog observes as a liveness heartbeat
//   - stdout, when Config.Stdout is set and stdout is connected
//   - the systemd journal, when Config.Journal is set and journald is reachable
//   - an in-memory ring buffer served by the supervisor status API
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Sink:   logFile,
//		Attrs:  []any{"role", "axis-x", "run_id", runID},
//		Modules: map[string]string{
//			"watchdog": "debug",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("axis")
//	logger.Info("Position published", "position", pos)
//
// Control loops that run faster than a human can read use a Throttle:
//
//	throttle := logging.NewThrottle(period)
//	if throttle.Allow() {
//		logger.Info("Status", "position", pos, "gain", gain)
//	}
//
// # Log Levels
//
//	debug - Verbose debugging information
//	info  - General operational messages
//	warn  - Warning conditions
//	error - Error conditions
//
// Module levels fall back to the global level and can be changed at runtime
// with SetLevel.
package logging
