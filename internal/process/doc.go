// Package process spawns and reaps the worker processes of a plant.
//
// Launcher turns a role and its argv into an exec.Cmd:
//   - computational roles run directly
//   - interactive roles run inside a terminal wrapper such as "konsole --hold -e"
//   - pipe endpoints and the log sink are handed over as ExtraFiles
//
// Group tracks the spawned workers:
//   - state tracking (starting, running, stopping, exited, error)
//   - ordered termination requests that tolerate individual failures
//   - a blocking group reap that accounts for every worker exactly once
//   - escalation to SIGKILL for workers that ignore the termination request
//   - callback hooks for state changes and reap anomalies
//
// Workers stay in the supervisor's process group so a single wait on the
// group collects them all.
//
//	group := process.NewGroup(launcher, &process.GroupOptions{
//	    OnStateChange: func(role worker.Role, old, new process.State, err error) {
//	        logger.Info("Worker state", "role", role, "from", old, "to", new)
//	    },
//	})
//	pid, err := group.Spawn(worker.RoleAxisX, args.Argv(), files.Files())
//	...
//	group.Terminate(worker.RoleAxisX, worker.RoleAxisZ)
//	report := group.Reap()
package process
