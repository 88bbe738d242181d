package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/worker"
)

// CommandConfig wires the command console.
type CommandConfig struct {
	X, Z      *channel.Endpoint // write ends of the axis command channels
	MasterPID int
	Input     io.Reader
	Output    io.Writer
	Requests  <-chan worker.Request
	// Send delivers out-of-band requests; worker.Send when nil.
	Send func(pid int, r worker.Request) error
}

// Command is the operator console that owns the write ends of both command
// channels.
type Command struct {
	cfg    CommandConfig
	logger *slog.Logger
	axes   map[string]*channel.Endpoint
}

// NewCommand creates a command console.
func NewCommand(cfg CommandConfig, logger *slog.Logger) *Command {
	if cfg.Send == nil {
		cfg.Send = worker.Send
	}
	return &Command{
		cfg:    cfg,
		logger: logger,
		axes:   map[string]*channel.Endpoint{"x": cfg.X, "z": cfg.Z},
	}
}

// Run reads keys until a terminate request arrives or ctx is done. A failed
// command write is returned and is fatal for the process.
func (c *Command) Run(ctx context.Context) error {
	fmt.Fprintln(c.cfg.Output, "Keys: x+ x- x0 z+ z- z0, q to stop the plant")
	c.logger.Info("Command console started", "master_pid", c.cfg.MasterPID)

	lines := readLines(c.cfg.Input)
	requests := c.cfg.Requests
	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			if req == worker.RequestTerminate {
				c.logger.Info("Command console terminating")
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				c.logger.Warn("Console input closed, waiting for shutdown")
				lines = nil
				continue
			}
			if err := c.handle(line); err != nil {
				return err
			}
		}
	}
}

func (c *Command) handle(line string) error {
	key, err := ParseCommandKey(line)
	if err != nil {
		c.logger.Debug("Ignoring key", "key", line)
		fmt.Fprintf(c.cfg.Output, "unknown key %q\n", line)
		return nil
	}

	if key.Quit {
		c.logger.Info("Stop requested from console")
		if err := c.cfg.Send(c.cfg.MasterPID, worker.RequestTerminate); err != nil {
			c.logger.Warn("Failed to signal supervisor", "error", err)
		}
		return nil
	}

	if err := c.axes[key.Axis].WriteRecord([]byte{key.Byte}); err != nil {
		return fmt.Errorf("command %s%c: %w", key.Axis, key.Byte, err)
	}
	c.logger.Info("Command sent", "axis", key.Axis, "command", string(key.Byte))
	return nil
}
