package console

import (
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

// InspectionConfig wires the inspection console.
type InspectionConfig struct {
	Readings   *channel.Endpoint // read end of the combined reading channel
	XPID, ZPID int
	Period     time.Duration
	Input      io.Reader
	Output     io.Writer
	Requests   <-chan worker.Request
	// Send delivers out-of-band requests; worker.Send when nil.
	Send func(pid int, r worker.Request) error
}

// Inspection prints noisy readings and relays halt and home requests to
// both axis controllers.
type Inspection struct {
	cfg      InspectionConfig
	logger   *slog.Logger
	throttle *logging.Throttle

	readingsOpen bool
	lines        <-chan string
}

// NewInspection creates an inspection console.
func NewInspection(cfg InspectionConfig, logger *slog.Logger) *Inspection {
	if cfg.Send == nil {
		cfg.Send = worker.Send
	}
	return &Inspection{
		cfg:          cfg,
		logger:       logger,
		throttle:     logging.NewThrottle(cfg.Period),
		readingsOpen: true,
	}
}

// Run loops until a terminate request arrives or ctx is done.
func (i *Inspection) Run(ctx context.Context) error {
	fmt.Fprintln(i.cfg.Output, "Keys: s to halt both axes, r to home both axes")
	i.logger.Info("Inspection console started", "x_pid", i.cfg.XPID, "z_pid", i.cfg.ZPID)

	i.lines = readLines(i.cfg.Input)
	for {
		if i.terminateRequested() || ctx.Err() != nil {
			i.logger.Info("Inspection console terminating")
			return nil
		}
		i.drainKeys()

		if err := i.receive(ctx); err != nil {
			return err
		}
	}
}

func (i *Inspection) terminateRequested() bool {
	for {
		select {
		case req, ok := <-i.cfg.Requests:
			if !ok {
				i.cfg.Requests = nil
				return false
			}
			if req == worker.RequestTerminate {
				return true
			}
		default:
			return false
		}
	}
}

func (i *Inspection) drainKeys() {
	for {
		select {
		case line, ok := <-i.lines:
			if !ok {
				i.logger.Warn("Console input closed")
				i.lines = nil
				return
			}
			i.handle(line)
		default:
			return
		}
	}
}

func (i *Inspection) handle(line string) {
	req, err := ParseInspectionKey(line)
	if err != nil {
		fmt.Fprintf(i.cfg.Output, "unknown key %q\n", line)
		return
	}
	for _, target := range []struct {
		axis string
		pid  int
	}{{"x", i.cfg.XPID}, {"z", i.cfg.ZPID}} {
		if err := i.cfg.Send(target.pid, req); err != nil {
			i.logger.Warn("Failed to deliver request", "axis", target.axis, "request", req.String(), "error", err)
			continue
		}
		i.logger.Info("Request sent", "axis", target.axis, "request", req.String())
	}
}

// receive waits up to one period for a reading and prints it.
func (i *Inspection) receive(ctx context.Context) error {
	if !i.readingsOpen {
		timer := time.NewTimer(i.cfg.Period)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		return nil
	}

	ready, err := i.cfg.Readings.WaitReadable(i.cfg.Period)
	if errors.Is(err, channel.ErrInterrupted) || (err == nil && !ready) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspection: wait for reading: %w", err)
	}

	rec, err := i.cfg.Readings.ReadRecord(channel.ReadingRecordSize)
	if errors.Is(err, io.EOF) {
		i.readingsOpen = false
		i.logger.Warn("Reading channel closed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspection: read reading: %w", err)
	}

	x, z, err := channel.DecodeReading(rec)
	if err != nil {
		i.logger.Warn("Dropping malformed reading", "error", err)
		return nil
	}
	fmt.Fprintf(i.cfg.Output, "X=%.2f Z=%.2f\n", x, z)
	if i.throttle.Allow() {
		i.logger.Info("Reading", "x", x, "z", z)
	}
	return nil
}
