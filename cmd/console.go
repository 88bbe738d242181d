package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/internal/console"
	"github.com/smazurov/gantry/internal/worker"
)

// CreateCommandCmd creates the command console.
func CreateCommandCmd() *cobra.Command {
	var common workerFlags
	var xFD, zFD, masterPID int

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Run the command console",
		Long:  `Reads x+ x- x0 z+ z- z0 from the terminal and jogs the axes. q stops the whole plant.`,
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logger := common.initLogging(worker.RoleCommand)

			requests, stop := worker.NotifyRequests(requestBuffer)
			defer stop()

			x := mustEndpoint(logger, "cmd-x", xFD)
			z := mustEndpoint(logger, "cmd-z", zFD)
			defer x.Close()
			defer z.Close()

			c := console.NewCommand(console.CommandConfig{
				X:         x,
				Z:         z,
				MasterPID: masterPID,
				Input:     os.Stdin,
				Output:    os.Stdout,
				Requests:  requests,
			}, logger)
			if err := c.Run(context.Background()); err != nil {
				fatal(logger, "Command console failed", err)
			}
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&xFD, worker.FlagXFD, worker.NoFD, "Inherited descriptor of the X command channel")
	fs.IntVar(&zFD, worker.FlagZFD, worker.NoFD, "Inherited descriptor of the Z command channel")
	fs.IntVar(&masterPID, worker.FlagMasterPID, 0, "Supervisor pid, signalled by q")
	common.bind(cmd)

	return cmd
}

// CreateInspectionCmd creates the inspection console.
func CreateInspectionCmd() *cobra.Command {
	var common workerFlags
	var inFD, xPID, zPID, samplingMs int

	cmd := &cobra.Command{
		Use:   "inspection",
		Short: "Run the inspection console",
		Long:  `Prints the noisy readings of the world model. s halts both axes, r homes both axes.`,
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logger := common.initLogging(worker.RoleInspection)

			requests, stop := worker.NotifyRequests(requestBuffer)
			defer stop()

			readings := mustEndpoint(logger, "reading", inFD)
			defer readings.Close()

			c := console.NewInspection(console.InspectionConfig{
				Readings: readings,
				XPID:     xPID,
				ZPID:     zPID,
				Period:   time.Duration(samplingMs) * time.Millisecond,
				Input:    os.Stdin,
				Output:   os.Stdout,
				Requests: requests,
			}, logger)
			if err := c.Run(context.Background()); err != nil {
				fatal(logger, "Inspection console failed", err)
			}
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&inFD, worker.FlagInFD, worker.NoFD, "Inherited descriptor of the reading channel")
	fs.IntVar(&xPID, worker.FlagXPID, 0, "X axis controller pid")
	fs.IntVar(&zPID, worker.FlagZPID, 0, "Z axis controller pid")
	fs.IntVar(&samplingMs, worker.FlagSamplingMs, 1000, "Poll period in milliseconds")
	common.bind(cmd)

	return cmd
}
