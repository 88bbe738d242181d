package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/gantry/internal/axis"
	"github.com/smazurov/gantry/internal/worker"
)

// CreateMotorCmd creates the axis controller command.
func CreateMotorCmd() *cobra.Command {
	var common workerFlags
	var name string
	var velocity, lo, hi float64
	var cmdFD, posFD, readyFD, samplingMs int

	cmd := &cobra.Command{
		Use:   "motor",
		Short: "Run one axis controller",
		Long: `Integrates the axis position from the command bytes received on --cmd-fd and ` +
			`publishes it on --pos-fd once per sampling period. SIGUSR1 halts, SIGUSR2 homes.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			role, err := axisRole(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "gantry: %v\n", err)
				os.Exit(1)
			}
			logger := common.initLogging(role)

			requests, stop := worker.NotifyRequests(requestBuffer)
			defer stop()

			commands := mustEndpoint(logger, "cmd-"+strings.ToLower(name), cmdFD)
			position := mustEndpoint(logger, "pos-"+strings.ToLower(name), posFD)
			defer commands.Close()
			defer position.Close()

			signalReady(logger, readyFD)

			controller := axis.NewController(axis.Config{
				Name:     name,
				Velocity: velocity,
				Bounds:   axis.Bounds{Min: lo, Max: hi},
				Period:   time.Duration(samplingMs) * time.Millisecond,
			}, commands, position, requests, logger)

			if err := controller.Run(context.Background()); err != nil {
				fatal(logger, "Axis controller failed", err)
			}
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&name, worker.FlagName, "", "Axis name (X or Z)")
	fs.Float64Var(&velocity, worker.FlagVelocity, 1.0, "Base velocity in units per second")
	fs.Float64Var(&lo, worker.FlagMin, 0, "Lower bound")
	fs.Float64Var(&hi, worker.FlagMax, 40, "Upper bound")
	fs.IntVar(&cmdFD, worker.FlagCmdFD, worker.NoFD, "Inherited descriptor of the command channel")
	fs.IntVar(&posFD, worker.FlagPosFD, worker.NoFD, "Inherited descriptor of the position channel")
	fs.IntVar(&samplingMs, worker.FlagSamplingMs, 1000, "Control loop period in milliseconds")
	fs.IntVar(&readyFD, worker.FlagReadyFD, worker.NoFD, "Inherited descriptor of the readiness pipe")
	common.bind(cmd)
	_ = cmd.MarkFlagRequired(worker.FlagName)

	return cmd
}

// axisRole maps the --name of an axis onto its role.
func axisRole(name string) (worker.Role, error) {
	switch strings.ToUpper(name) {
	case "X":
		return worker.RoleAxisX, nil
	case "Z":
		return worker.RoleAxisZ, nil
	default:
		return "", fmt.Errorf("unknown axis %q", name)
	}
}
