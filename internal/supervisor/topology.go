package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/worker"
)

// MasterLogFile is the supervisor's own log inside the log directory. The
// watchdog ignores it.
const MasterLogFile = "master.log"

// Roles lists every worker of the plant in spawn order.
var Roles = []worker.Role{
	worker.RoleAxisX,
	worker.RoleAxisZ,
	worker.RoleCommand,
	worker.RoleInspection,
	worker.RoleWorld,
}

// ShutdownOrder is the order termination requests are sent in.
var ShutdownOrder = []worker.Role{
	worker.RoleAxisX,
	worker.RoleAxisZ,
	worker.RoleWorld,
	worker.RoleCommand,
	worker.RoleInspection,
}

// LogDir is the directory every process of the plant logs into.
type LogDir struct {
	Path string
	// Existed is set when the directory was already present and is reused.
	Existed bool

	master *os.File
}

// OpenLogDir creates path if missing and opens the supervisor's own log.
func OpenLogDir(path string) (*LogDir, error) {
	d := &LogDir{Path: path}
	if fi, err := os.Stat(path); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("log dir %s is not a directory", path)
		}
		d.Existed = true
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	master, err := openLog(filepath.Join(path, MasterLogFile))
	if err != nil {
		return nil, err
	}
	d.master = master
	return d, nil
}

// Master returns the supervisor's log file.
func (d *LogDir) Master() *os.File {
	return d.master
}

// Close closes the supervisor's log file.
func (d *LogDir) Close() error {
	if d.master == nil {
		return nil
	}
	err := d.master.Close()
	d.master = nil
	return err
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return f, nil
}

// topology holds the supervisor's copies of everything handed to workers.
type topology struct {
	fabric *channel.Fabric
	logs   map[worker.Role]*os.File
}

// buildTopology allocates the plant pipes and one log file per worker. Any
// failure releases what was allocated.
func buildTopology(dir *LogDir) (*topology, error) {
	fabric, err := channel.NewFabric(channel.PlantPipes...)
	if err != nil {
		return nil, err
	}

	t := &topology{fabric: fabric, logs: make(map[worker.Role]*os.File, len(Roles))}
	for _, role := range Roles {
		f, err := openLog(filepath.Join(dir.Path, role.LogFile()))
		if err != nil {
			t.release()
			return nil, err
		}
		t.logs[role] = f
	}
	return t, nil
}

func (t *topology) pipe(name string) *channel.Pipe {
	return t.fabric.Pipe(name)
}

// release closes the local copies of every pipe endpoint and worker log.
// Safe to call more than once.
func (t *topology) release() error {
	errs := []error{t.fabric.Close()}
	for role, f := range t.logs {
		errs = append(errs, f.Close())
		delete(t.logs, role)
	}
	return errors.Join(errs...)
}
