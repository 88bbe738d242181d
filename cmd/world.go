package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/internal/world"
	"github.com/smazurov/gantry/internal/worker"
)

// CreateWorldCmd creates the world model command.
func CreateWorldCmd() *cobra.Command {
	var common workerFlags
	var xFD, zFD, outFD, readyFD, samplingMs int
	var noise float64

	cmd := &cobra.Command{
		Use:   "world",
		Short: "Run the world model",
		Long: `Reads both axis positions, adds uniform jitter of width --noise and publishes ` +
			`the combined reading on --out-fd whenever it changes.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			logger := common.initLogging(worker.RoleWorld)

			requests, stop := worker.NotifyRequests(requestBuffer)
			defer stop()

			x := mustEndpoint(logger, "pos-x", xFD)
			z := mustEndpoint(logger, "pos-z", zFD)
			out := mustEndpoint(logger, "reading", outFD)
			defer x.Close()
			defer z.Close()
			defer out.Close()

			signalReady(logger, readyFD)

			period := time.Duration(samplingMs) * time.Millisecond
			runner := world.NewRunner(world.NewModel(noise, nil), period, x, z, out, requests, logger)
			if err := runner.Run(context.Background()); err != nil {
				fatal(logger, "World model failed", err)
			}
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&xFD, worker.FlagXFD, worker.NoFD, "Inherited descriptor of the X position channel")
	fs.IntVar(&zFD, worker.FlagZFD, worker.NoFD, "Inherited descriptor of the Z position channel")
	fs.IntVar(&outFD, worker.FlagOutFD, worker.NoFD, "Inherited descriptor of the reading channel")
	fs.IntVar(&samplingMs, worker.FlagSamplingMs, 1000, "Poll period in milliseconds")
	fs.Float64Var(&noise, worker.FlagNoise, 0.4, "Width of the uniform jitter")
	fs.IntVar(&readyFD, worker.FlagReadyFD, worker.NoFD, "Inherited descriptor of the readiness pipe")
	common.bind(cmd)

	return cmd
}
