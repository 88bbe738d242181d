package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/cmd"
	"github.com/smazurov/gantry/internal/api"
	"github.com/smazurov/gantry/internal/config"
	"github.com/smazurov/gantry/internal/events"
	"github.com/smazurov/gantry/internal/logging"
	"github.com/smazurov/gantry/internal/metrics"
	"github.com/smazurov/gantry/internal/metrics/exporters"
	"github.com/smazurov/gantry/internal/supervisor"
	"github.com/smazurov/gantry/internal/version"
)

func main() {
	opts := config.DefaultOptions()

	root := &cobra.Command{
		Use:   "gantry",
		Short: "Two-axis gantry plant simulation",
		Long: `Spawns two axis controllers, a world model and two operator consoles, ` +
			`connects them with pipes and shuts everything down once the log directory ` +
			`has been quiet for the watchdog timeout or SIGTERM arrives.`,
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, c); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(opts)
		},
	}
	config.BindFlags(root.Flags(), &opts)

	root.AddCommand(
		cmd.CreateMotorCmd(),
		cmd.CreateWorldCmd(),
		cmd.CreateCommandCmd(),
		cmd.CreateInspectionCmd(),
		cmd.CreateVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gantry: %v\n", err)
		os.Exit(1)
	}
}

// run supervises one plant run.
func run(opts config.Options) error {
	dir, err := supervisor.OpenLogDir(opts.LogDir)
	if err != nil {
		return err
	}
	defer dir.Close()

	runID := uuid.NewString()

	// Loggers must be taken after Initialize so they carry the master sink.
	loggingConfig := config.LoadLoggingConfig(opts.Config)
	loggingConfig.Level = opts.LoggingLevel
	loggingConfig.Format = opts.LoggingFormat
	loggingConfig.Journal = opts.LoggingJournal
	loggingConfig.Stdout = true
	loggingConfig.Sink = dir.Master()
	loggingConfig.Attrs = []any{"role", "master", "run_id", runID}
	logging.Initialize(loggingConfig)

	logger := logging.GetLogger("main")
	logger.Info("Starting gantry", "version", version.String(), "log_dir", dir.Path, "pid", os.Getpid())

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	eventBus := events.New()
	unsubscribe := metrics.Subscribe(eventBus)
	defer unsubscribe()

	sup, err := supervisor.New(
		supervisor.ConfigFromOptions(opts, executable, runID),
		dir,
		eventBus,
		logging.GetLogger("supervisor"),
	)
	if err != nil {
		return err
	}

	var server *api.Server
	if opts.ServerAddr != "" {
		server = api.NewServer(&api.Options{
			Plant:             sup,
			EventBus:          eventBus,
			PrometheusHandler: exporters.HTTPHandler(),
			AuthUsername:      opts.ServerUsername,
			AuthPassword:      opts.ServerPassword,
		})
		go func() {
			if startErr := server.Start(opts.ServerAddr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("API server failed", "error", startErr)
			}
		}()
	}

	result, runErr := sup.Run(context.Background())

	if server != nil {
		if stopErr := server.Stop(); stopErr != nil {
			logger.Error("Error stopping API server", "error", stopErr)
		}
	}

	if runErr != nil {
		logger.Error("Plant run failed", "error", runErr)
		return runErr
	}

	logger.Info("Plant stopped",
		"outcome", result.Outcome,
		"reaped", len(result.Reap.Reaped),
		"anomalies", len(result.Reap.Anomalies),
		"shutdown", result.Shutdown)
	return nil
}
