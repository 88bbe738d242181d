// Package worker holds the contract between the supervisor and the processes
// it spawns: roles, command lines, inherited descriptors, out-of-band requests
// and the readiness handshake.
package worker

import (
	"os"
	"strconv"
)

// Role identifies one process of the plant.
type Role string

const (
	RoleAxisX      Role = "axis-x"
	RoleAxisZ      Role = "axis-z"
	RoleWorld      Role = "world"
	RoleCommand    Role = "command"
	RoleInspection Role = "inspection"
)

// Subcommand returns the gantry subcommand that runs the role.
func (r Role) Subcommand() string {
	switch r {
	case RoleAxisX, RoleAxisZ:
		return "motor"
	default:
		return string(r)
	}
}

// Interactive reports whether the role needs a terminal of its own.
func (r Role) Interactive() bool {
	return r == RoleCommand || r == RoleInspection
}

// LogFile is the role's file name inside the log directory.
func (r Role) LogFile() string {
	return string(r) + ".log"
}

// Flag names shared by the argv builders and the subcommands that parse them.
const (
	FlagName       = "name"
	FlagVelocity   = "velocity"
	FlagMin        = "min"
	FlagMax        = "max"
	FlagCmdFD      = "cmd-fd"
	FlagPosFD      = "pos-fd"
	FlagXFD        = "x-fd"
	FlagZFD        = "z-fd"
	FlagOutFD      = "out-fd"
	FlagInFD       = "in-fd"
	FlagLogFD      = "log-fd"
	FlagReadyFD    = "ready-fd"
	FlagSamplingMs = "sampling-ms"
	FlagNoise      = "noise"
	FlagMasterPID  = "master-pid"
	FlagXPID       = "x-pid"
	FlagZPID       = "z-pid"
	FlagRunID      = "run-id"
	FlagLogLevel   = "log-level"
	FlagLogFormat  = "log-format"
)

// NoFD marks an optional descriptor that was not handed over.
const NoFD = -1

// firstExtraFD is where exec.Cmd.ExtraFiles start in the child.
const firstExtraFD = 3

// FileSet collects descriptors handed to a child and assigns their numbers.
type FileSet struct {
	files []*os.File
}

// Add appends f and returns the descriptor number it will have in the child.
func (s *FileSet) Add(f *os.File) int {
	s.files = append(s.files, f)
	return firstExtraFD + len(s.files) - 1
}

// Files returns the files in descriptor order, suitable for exec.Cmd.ExtraFiles.
func (s *FileSet) Files() []*os.File {
	return s.files
}

// Common carries the arguments every role receives.
type Common struct {
	LogFD     int
	RunID     string
	LogLevel  string
	LogFormat string
}

func (c Common) append(argv []string) []string {
	argv = append(argv, flag(FlagLogFD, itoa(c.LogFD)))
	if c.LogLevel != "" {
		argv = append(argv, flag(FlagLogLevel, c.LogLevel))
	}
	if c.LogFormat != "" {
		argv = append(argv, flag(FlagLogFormat, c.LogFormat))
	}
	return append(argv, flag(FlagRunID, c.RunID))
}

// MotorArgs configures an axis controller.
type MotorArgs struct {
	Common
	Name       string
	Velocity   float64
	Min        float64
	Max        float64
	CmdFD      int
	PosFD      int
	SamplingMs int
	ReadyFD    int
}

// Argv renders the motor command line in its fixed order.
func (a MotorArgs) Argv() []string {
	argv := []string{
		"motor",
		flag(FlagName, a.Name),
		flag(FlagVelocity, ftoa(a.Velocity)),
		flag(FlagMin, ftoa(a.Min)),
		flag(FlagMax, ftoa(a.Max)),
		flag(FlagCmdFD, itoa(a.CmdFD)),
		flag(FlagPosFD, itoa(a.PosFD)),
		flag(FlagSamplingMs, itoa(a.SamplingMs)),
	}
	if a.ReadyFD != NoFD {
		argv = append(argv, flag(FlagReadyFD, itoa(a.ReadyFD)))
	}
	return a.Common.append(argv)
}

// WorldArgs configures the world model.
type WorldArgs struct {
	Common
	XFD        int
	ZFD        int
	OutFD      int
	SamplingMs int
	Noise      float64
	ReadyFD    int
}

// Argv renders the world command line in its fixed order.
func (a WorldArgs) Argv() []string {
	argv := []string{
		"world",
		flag(FlagXFD, itoa(a.XFD)),
		flag(FlagZFD, itoa(a.ZFD)),
		flag(FlagOutFD, itoa(a.OutFD)),
		flag(FlagSamplingMs, itoa(a.SamplingMs)),
		flag(FlagNoise, ftoa(a.Noise)),
	}
	if a.ReadyFD != NoFD {
		argv = append(argv, flag(FlagReadyFD, itoa(a.ReadyFD)))
	}
	return a.Common.append(argv)
}

// CommandArgs configures the command console.
type CommandArgs struct {
	Common
	XFD       int
	ZFD       int
	MasterPID int
}

// Argv renders the command console command line in its fixed order.
func (a CommandArgs) Argv() []string {
	return a.Common.append([]string{
		"command",
		flag(FlagXFD, itoa(a.XFD)),
		flag(FlagZFD, itoa(a.ZFD)),
		flag(FlagMasterPID, itoa(a.MasterPID)),
	})
}

// InspectionArgs configures the inspection console.
type InspectionArgs struct {
	Common
	InFD       int
	XPID       int
	ZPID       int
	SamplingMs int
}

// Argv renders the inspection console command line in its fixed order.
func (a InspectionArgs) Argv() []string {
	return a.Common.append([]string{
		"inspection",
		flag(FlagInFD, itoa(a.InFD)),
		flag(FlagXPID, itoa(a.XPID)),
		flag(FlagZPID, itoa(a.ZPID)),
		flag(FlagSamplingMs, itoa(a.SamplingMs)),
	})
}

func flag(name, value string) string {
	return "--" + name + "=" + value
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
