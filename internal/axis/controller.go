package axis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/logging"
	"github.com/smazurov/gantry/internal/worker"
)

// requestCheckInterval bounds how long a pending out-of-band request waits
// while the loop is blocked on the command channel.
const requestCheckInterval = 20 * time.Millisecond

// Config describes one axis.
type Config struct {
	Name     string
	Velocity float64
	Bounds   Bounds
	Period   time.Duration
}

// Controller runs the control loop of one axis: it folds command bytes into
// the gain, integrates the position once per period and publishes it when it
// changes.
type Controller struct {
	cfg      Config
	state    *State
	commands *channel.Endpoint
	position *channel.Endpoint
	requests <-chan worker.Request
	logger   *slog.Logger
	throttle *logging.Throttle

	commandsOpen bool
	last         []byte
}

// NewController creates a controller reading commands from commands and
// writing position records to position.
func NewController(cfg Config, commands, position *channel.Endpoint, requests <-chan worker.Request, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:          cfg,
		state:        NewState(cfg.Velocity, cfg.Bounds),
		commands:     commands,
		position:     position,
		requests:     requests,
		logger:       logger.With("axis", cfg.Name),
		throttle:     logging.NewThrottle(cfg.Period),
		commandsOpen: true,
	}
}

// State returns a copy of the current axis state.
func (c *Controller) State() State {
	return *c.state
}

// Run loops until a terminate request arrives or ctx is done. Any error
// returned is fatal for the process.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Axis controller started",
		"velocity", c.cfg.Velocity,
		"min", c.cfg.Bounds.Min,
		"max", c.cfg.Bounds.Max,
		"period", c.cfg.Period)

	if err := c.publish(); err != nil {
		return err
	}

	periodMs := int(c.cfg.Period / time.Millisecond)
	for {
		// Pending requests are applied before the next integration.
		deadline := time.Now().Add(c.cfg.Period)
		for {
			if err := c.awaitCommands(ctx, deadline); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			if c.drainRequests() {
				c.logger.Info("Axis controller terminating", "position", c.state.Position)
				return nil
			}
			if !time.Now().Before(deadline) {
				break
			}
		}

		wasHoming := c.state.Mode == ModeHoming
		c.state.Tick(periodMs)
		if wasHoming && c.state.Mode == ModeNormal {
			c.logger.Info("Homing complete", "position", c.state.Position)
		}

		if err := c.publish(); err != nil {
			return err
		}
	}
}

// drainRequests applies every pending out-of-band request without blocking
// and reports whether the loop must stop.
func (c *Controller) drainRequests() bool {
	for {
		select {
		case req, ok := <-c.requests:
			if !ok {
				c.requests = nil
				return false
			}
			switch req {
			case worker.RequestHalt:
				c.state.Halt()
				c.logger.Info("Halt requested", "position", c.state.Position)
			case worker.RequestHome:
				c.state.Home()
				c.logger.Info("Homing requested", "position", c.state.Position)
			case worker.RequestTerminate:
				return true
			}
		default:
			return false
		}
	}
}

// awaitCommands waits until deadline, applying command bytes as they arrive.
// It returns early once an out-of-band request is pending.
func (c *Controller) awaitCommands(ctx context.Context, deadline time.Time) error {
	buf := make([]byte, 16)
	for {
		if len(c.requests) > 0 {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		slice := min(remaining, requestCheckInterval)

		if !c.commandsOpen {
			timer := time.NewTimer(slice)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
			continue
		}

		ready, err := c.commands.WaitReadable(slice)
		if errors.Is(err, channel.ErrInterrupted) {
			continue
		}
		if err != nil {
			return fmt.Errorf("axis %s: wait for commands: %w", c.cfg.Name, err)
		}
		if !ready {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		n, err := c.commands.Read(buf)
		if errors.Is(err, io.EOF) {
			c.commandsOpen = false
			c.logger.Warn("Command channel closed, holding current gain", "gain", c.state.Gain)
			continue
		}
		if err != nil {
			return fmt.Errorf("axis %s: %w", c.cfg.Name, err)
		}

		for _, b := range buf[:n] {
			c.applyCommand(b)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Controller) applyCommand(b byte) {
	if c.state.Mode == ModeHoming {
		c.logger.Debug("Command discarded while homing", "command", string(b))
		return
	}
	before := c.state.Gain
	c.state.ApplyCommand(b)
	c.logger.Info("Velocity gain updated", "command", string(b), "from", before, "to", c.state.Gain)
}

// publish writes the position record when its encoding differs from the last
// one sent. The first call always publishes.
func (c *Controller) publish() error {
	pos := c.state.Position
	rec, err := channel.EncodePosition(pos)
	if err != nil {
		return fmt.Errorf("axis %s: %w", c.cfg.Name, err)
	}
	if c.last != nil && bytes.Equal(rec, c.last) {
		return nil
	}

	if err := c.position.WriteRecord(rec); err != nil {
		return fmt.Errorf("axis %s: publish position: %w", c.cfg.Name, err)
	}
	c.last = rec

	if c.throttle.Allow() {
		c.logger.Info("Position",
			"position", pos,
			"gain", c.state.Gain,
			"mode", c.state.Mode.String())
	}
	return nil
}
