// Package cmd holds the gantry subcommands that run one worker role each.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/logging"
	"github.com/smazurov/gantry/internal/worker"
)

// requestBuffer is the depth of the out-of-band request channel.
const requestBuffer = 8

// workerFlags are passed to every role by the supervisor.
type workerFlags struct {
	logFD     int
	runID     string
	logLevel  string
	logFormat string
}

func (f *workerFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.logFD, worker.FlagLogFD, worker.NoFD, "Inherited descriptor of the role's log file")
	fs.StringVar(&f.runID, worker.FlagRunID, "", "Run identifier shared by every process of the plant")
	fs.StringVar(&f.logLevel, worker.FlagLogLevel, "info", "Logging level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, worker.FlagLogFormat, "text", "Logging format (text, json)")
}

// initLogging routes the role's records into its inherited log file.
// Standard output stays free for the consoles.
func (f *workerFlags) initLogging(role worker.Role) *slog.Logger {
	cfg := logging.Config{
		Level:  f.logLevel,
		Format: f.logFormat,
		Attrs:  []any{"role", string(role), "run_id", f.runID},
	}
	if f.logFD != worker.NoFD {
		cfg.Sink = os.NewFile(uintptr(f.logFD), role.LogFile())
	} else {
		cfg.Stdout = true
	}
	logging.Initialize(cfg)
	return logging.GetLogger(string(role))
}

// fatal reports err on stderr and in the log, then exits with status 1.
func fatal(logger *slog.Logger, msg string, err error) {
	fmt.Fprintf(os.Stderr, "gantry: %s: %v\n", msg, err)
	logger.Error(msg, "error", err)
	os.Exit(1)
}

// mustEndpoint adopts an inherited descriptor or exits.
func mustEndpoint(logger *slog.Logger, name string, fd int) *channel.Endpoint {
	ep, err := channel.FromFD(name, fd)
	if err != nil {
		fatal(logger, "Failed to open channel", err)
	}
	return ep
}

// signalReady completes the readiness handshake when the supervisor asked for one.
func signalReady(logger *slog.Logger, fd int) {
	if fd == worker.NoFD {
		return
	}
	if err := worker.SignalReady(mustEndpoint(logger, "ready", fd)); err != nil {
		fatal(logger, "Failed to signal readiness", err)
	}
}
