package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Floors inherited from the plant timing model.
const (
	MinSamplingMs      = 30
	MinWatchdogSeconds = 2
	// PositionDigits is the widest "%.2f" rendering that fits a position record.
	PositionDigits = 5
)

// Options holds every supervisor setting. Field names map to flag names
// (AxisXMax -> --axis-x-max), toml tags to config file keys and env tags to
// GANTRY_* variables.
type Options struct {
	Config string `toml:"-"`

	LogDir           string `toml:"supervisor.log_dir" env:"LOG_DIR"`
	WatchdogSeconds  int    `toml:"supervisor.watchdog_seconds" env:"WATCHDOG_SECONDS"`
	SamplingMs       int    `toml:"supervisor.sampling_ms" env:"SAMPLING_MS"`
	Terminal         string `toml:"supervisor.terminal" env:"TERMINAL"`
	ReadinessBarrier bool   `toml:"supervisor.readiness_barrier" env:"READINESS_BARRIER"`
	ReadyTimeoutMs   int    `toml:"supervisor.ready_timeout_ms" env:"READY_TIMEOUT_MS"`

	Noise float64 `toml:"world.noise" env:"NOISE"`

	AxisXVelocity float64 `toml:"axis_x.velocity" env:"AXIS_X_VELOCITY"`
	AxisXMin      float64 `toml:"axis_x.min" env:"AXIS_X_MIN"`
	AxisXMax      float64 `toml:"axis_x.max" env:"AXIS_X_MAX"`
	AxisZVelocity float64 `toml:"axis_z.velocity" env:"AXIS_Z_VELOCITY"`
	AxisZMin      float64 `toml:"axis_z.min" env:"AXIS_Z_MIN"`
	AxisZMax      float64 `toml:"axis_z.max" env:"AXIS_Z_MAX"`

	ServerAddr     string `toml:"server.addr" env:"SERVER_ADDR"`
	ServerUsername string `toml:"server.username" env:"SERVER_USERNAME"`
	ServerPassword string `toml:"server.password" env:"SERVER_PASSWORD"`

	LoggingLevel   string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingJournal bool   `toml:"logging.journal" env:"LOGGING_JOURNAL"`
}

// DefaultOptions returns the stock plant: a 40 unit X axis at 1.0/s, a
// 10 unit Z axis at 0.25/s, 1s sampling, 60s watchdog and 0.4 noise.
func DefaultOptions() Options {
	return Options{
		Config:          "gantry.toml",
		LogDir:          "logs",
		WatchdogSeconds: 60,
		SamplingMs:      1000,
		Terminal:        "konsole --hold -e",
		ReadyTimeoutMs:  5000,
		Noise:           0.4,
		AxisXVelocity:   1.0,
		AxisXMin:        0,
		AxisXMax:        40,
		AxisZVelocity:   0.25,
		AxisZMin:        0,
		AxisZMax:        10,
		LoggingLevel:    "info",
		LoggingFormat:   "text",
	}
}

// BindFlags registers one flag per option, defaulting to the current values of o.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.Config, "config", "c", o.Config, "Path to configuration file")
	fs.StringVar(&o.LogDir, "log-dir", o.LogDir, "Directory holding one log file per process")
	fs.IntVarP(&o.WatchdogSeconds, "watchdog-seconds", "t", o.WatchdogSeconds, "Inactivity timeout before shutdown")
	fs.IntVarP(&o.SamplingMs, "sampling-ms", "s", o.SamplingMs, "Control loop period in milliseconds")
	fs.StringVar(&o.Terminal, "terminal", o.Terminal, "Command line used to host interactive consoles (empty runs them directly)")
	fs.BoolVar(&o.ReadinessBarrier, "readiness-barrier", o.ReadinessBarrier, "Wait for each computational worker to report ready before spawning the next")
	fs.IntVar(&o.ReadyTimeoutMs, "ready-timeout-ms", o.ReadyTimeoutMs, "Readiness barrier timeout in milliseconds")
	fs.Float64VarP(&o.Noise, "noise", "n", o.Noise, "Width of the uniform jitter added by the world model")
	fs.Float64Var(&o.AxisXVelocity, "axis-x-velocity", o.AxisXVelocity, "X axis base velocity (units/s)")
	fs.Float64Var(&o.AxisXMin, "axis-x-min", o.AxisXMin, "X axis lower bound")
	fs.Float64Var(&o.AxisXMax, "axis-x-max", o.AxisXMax, "X axis upper bound")
	fs.Float64Var(&o.AxisZVelocity, "axis-z-velocity", o.AxisZVelocity, "Z axis base velocity (units/s)")
	fs.Float64Var(&o.AxisZMin, "axis-z-min", o.AxisZMin, "Z axis lower bound")
	fs.Float64Var(&o.AxisZMax, "axis-z-max", o.AxisZMax, "Z axis upper bound")
	fs.StringVar(&o.ServerAddr, "server-addr", o.ServerAddr, "Status API listen address (empty disables it)")
	fs.StringVar(&o.ServerUsername, "server-username", o.ServerUsername, "Basic auth username for control endpoints")
	fs.StringVar(&o.ServerPassword, "server-password", o.ServerPassword, "Basic auth password for control endpoints")
	fs.StringVar(&o.LoggingLevel, "logging-level", o.LoggingLevel, "Global logging level (debug, info, warn, error)")
	fs.StringVar(&o.LoggingFormat, "logging-format", o.LoggingFormat, "Logging format (text, json)")
	fs.BoolVar(&o.LoggingJournal, "logging-journal", o.LoggingJournal, "Forward logs to the systemd journal")
}

// Sampling returns the control loop period.
func (o Options) Sampling() time.Duration {
	return time.Duration(o.SamplingMs) * time.Millisecond
}

// Watchdog returns the inactivity timeout.
func (o Options) Watchdog() time.Duration {
	return time.Duration(o.WatchdogSeconds) * time.Second
}

// ReadyTimeout returns the readiness barrier timeout.
func (o Options) ReadyTimeout() time.Duration {
	return time.Duration(o.ReadyTimeoutMs) * time.Millisecond
}

// Validate checks the options against the timing floors and record widths.
func (o Options) Validate() error {
	var errs []error

	if o.LogDir == "" {
		errs = append(errs, errors.New("log dir must not be empty"))
	}
	if o.SamplingMs < MinSamplingMs {
		errs = append(errs, fmt.Errorf("sampling period %dms below minimum %dms", o.SamplingMs, MinSamplingMs))
	}
	if o.WatchdogSeconds < MinWatchdogSeconds {
		errs = append(errs, fmt.Errorf("watchdog timeout %ds below minimum %ds", o.WatchdogSeconds, MinWatchdogSeconds))
	}
	if o.ReadinessBarrier && o.ReadyTimeoutMs <= 0 {
		errs = append(errs, errors.New("ready timeout must be positive"))
	}
	if o.Noise < 0 {
		errs = append(errs, fmt.Errorf("noise %.2f must not be negative", o.Noise))
	}

	errs = append(errs, validateAxis("x", o.AxisXVelocity, o.AxisXMin, o.AxisXMax, o.Noise))
	errs = append(errs, validateAxis("z", o.AxisZVelocity, o.AxisZMin, o.AxisZMax, o.Noise))

	return errors.Join(errs...)
}

// validateAxis checks one axis. Bounds widened by half the noise must still
// render within a position record so the world reading never overflows.
func validateAxis(name string, velocity, lo, hi, noise float64) error {
	if velocity <= 0 {
		return fmt.Errorf("axis %s: velocity %.2f must be positive", name, velocity)
	}
	if lo >= hi {
		return fmt.Errorf("axis %s: min %.2f must be below max %.2f", name, lo, hi)
	}
	for _, v := range []float64{lo - noise/2, hi + noise/2} {
		if n := len(fmt.Sprintf("%.2f", v)); n > PositionDigits {
			return fmt.Errorf("axis %s: bound %.2f does not fit a %d character record", name, v, PositionDigits)
		}
	}
	return nil
}
