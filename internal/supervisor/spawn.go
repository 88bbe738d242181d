package supervisor

import (
	"fmt"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/events"
	"github.com/smazurov/gantry/internal/worker"
)

// spawnAll starts every worker in spawn order. With the readiness barrier
// enabled, each computational worker must report ready before the next one
// is spawned.
func (s *Supervisor) spawnAll(t *topology) error {
	pids := make(map[worker.Role]int, len(Roles))

	for _, role := range Roles {
		var ready *channel.Pipe
		if s.cfg.ReadinessBarrier && !role.Interactive() {
			p, err := channel.NewPipe("ready-" + string(role))
			if err != nil {
				return err
			}
			ready = p
		}

		args, files := s.workerArgs(role, t, pids, ready)
		pid, err := s.group.Spawn(role, args, files.Files())
		if ready != nil {
			// The child holds its own write end.
			ready.Writer.Close()
		}
		if err != nil {
			if ready != nil {
				ready.Reader.Close()
			}
			return err
		}
		pids[role] = pid
		s.publish(events.WorkerSpawnedEvent{Role: string(role), PID: pid, Timestamp: now()})

		if ready != nil {
			err := worker.AwaitReady(ready.Reader, s.cfg.ReadyTimeout)
			ready.Reader.Close()
			if err != nil {
				return fmt.Errorf("worker %s: %w", role, err)
			}
			s.logger.Debug("Worker ready", "role", role, "pid", pid)
		}
	}
	return nil
}

// workerArgs builds the command line and inherited descriptors of role.
func (s *Supervisor) workerArgs(role worker.Role, t *topology, pids map[worker.Role]int, ready *channel.Pipe) ([]string, *worker.FileSet) {
	files := &worker.FileSet{}
	samplingMs := int(s.cfg.Sampling.Milliseconds())

	common := func() worker.Common {
		return worker.Common{
			LogFD:     files.Add(t.logs[role]),
			RunID:     s.cfg.RunID,
			LogLevel:  s.cfg.LogLevel,
			LogFormat: s.cfg.LogFormat,
		}
	}
	readyFD := func() int {
		if ready == nil {
			return worker.NoFD
		}
		return files.Add(ready.Writer.File())
	}

	switch role {
	case worker.RoleAxisX, worker.RoleAxisZ:
		spec, cmdPipe, posPipe := s.cfg.AxisX, channel.PipeCommandX, channel.PipePositionX
		name := "X"
		if role == worker.RoleAxisZ {
			spec, cmdPipe, posPipe = s.cfg.AxisZ, channel.PipeCommandZ, channel.PipePositionZ
			name = "Z"
		}
		args := worker.MotorArgs{
			Name:       name,
			Velocity:   spec.Velocity,
			Min:        spec.Min,
			Max:        spec.Max,
			CmdFD:      files.Add(t.pipe(cmdPipe).Reader.File()),
			PosFD:      files.Add(t.pipe(posPipe).Writer.File()),
			SamplingMs: samplingMs,
		}
		args.Common = common()
		args.ReadyFD = readyFD()
		return args.Argv(), files

	case worker.RoleWorld:
		args := worker.WorldArgs{
			XFD:        files.Add(t.pipe(channel.PipePositionX).Reader.File()),
			ZFD:        files.Add(t.pipe(channel.PipePositionZ).Reader.File()),
			OutFD:      files.Add(t.pipe(channel.PipeReading).Writer.File()),
			SamplingMs: samplingMs,
			Noise:      s.cfg.Noise,
		}
		args.Common = common()
		args.ReadyFD = readyFD()
		return args.Argv(), files

	case worker.RoleCommand:
		args := worker.CommandArgs{
			XFD:       files.Add(t.pipe(channel.PipeCommandX).Writer.File()),
			ZFD:       files.Add(t.pipe(channel.PipeCommandZ).Writer.File()),
			MasterPID: s.masterPID,
		}
		args.Common = common()
		return args.Argv(), files

	default: // worker.RoleInspection
		args := worker.InspectionArgs{
			InFD:       files.Add(t.pipe(channel.PipeReading).Reader.File()),
			XPID:       pids[worker.RoleAxisX],
			ZPID:       pids[worker.RoleAxisZ],
			SamplingMs: samplingMs,
		}
		args.Common = common()
		return args.Argv(), files
	}
}
