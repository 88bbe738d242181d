package world

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

// input is one upstream position channel.
type input struct {
	axis     string
	ep       *channel.Endpoint
	open     bool
	position float64
}

// Runner fans in both axis positions and publishes noisy readings.
type Runner struct {
	model    *Model
	period   time.Duration
	inputs   []*input
	out      *channel.Endpoint
	requests <-chan worker.Request
	logger   *slog.Logger
	throttle *logging.Throttle
	last     []byte
}

// NewRunner creates a runner reading X and Z positions and writing readings to out.
func NewRunner(model *Model, period time.Duration, x, z, out *channel.Endpoint, requests <-chan worker.Request, logger *slog.Logger) *Runner {
	return &Runner{
		model:  model,
		period: period,
		inputs: []*input{
			{axis: "x", ep: x, open: true},
			{axis: "z", ep: z, open: true},
		},
		out:      out,
		requests: requests,
		logger:   logger,
		throttle: logging.NewThrottle(period),
	}
}

// Positions returns the latest exact positions received.
func (r *Runner) Positions() (x, z float64) {
	return r.inputs[0].position, r.inputs[1].position
}

// Run loops until a terminate request arrives or ctx is done.
// Any error returned is fatal for the process.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("World model started", "noise", r.model.Noise(), "period", r.period)

	for {
		if r.terminateRequested() || ctx.Err() != nil {
			r.logger.Info("World model terminating")
			return nil
		}

		updated, err := r.receive(ctx)
		if err != nil {
			return err
		}
		if updated {
			if err := r.publish(); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) terminateRequested() bool {
	for {
		select {
		case req, ok := <-r.requests:
			if !ok {
				r.requests = nil
				return false
			}
			if req == worker.RequestTerminate {
				return true
			}
			r.logger.Debug("Ignoring request", "request", req.String())
		default:
			return false
		}
	}
}

// receive waits up to one period for position records and reports whether
// any position was updated.
func (r *Runner) receive(ctx context.Context) (bool, error) {
	var active []*input
	var eps []*channel.Endpoint
	for _, in := range r.inputs {
		if in.open {
			active = append(active, in)
			eps = append(eps, in.ep)
		}
	}

	if len(eps) == 0 {
		timer := time.NewTimer(r.period)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		return false, nil
	}

	ready, err := channel.Poll(r.period, eps...)
	if errors.Is(err, channel.ErrInterrupted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("world: wait for positions: %w", err)
	}

	updated := false
	for i, in := range active {
		if !ready[i] {
			continue
		}
		rec, err := in.ep.ReadRecord(channel.PositionRecordSize)
		if errors.Is(err, io.EOF) {
			in.open = false
			r.logger.Warn("Position channel closed", "axis", in.axis)
			continue
		}
		if err != nil {
			return false, fmt.Errorf("world: read %s position: %w", in.axis, err)
		}
		v, err := channel.DecodePosition(rec)
		if err != nil {
			r.logger.Warn("Dropping malformed position record", "axis", in.axis, "error", err)
			continue
		}
		in.position = v
		updated = true
	}
	return updated, nil
}

// publish sends a fresh noisy reading unless it encodes identically to the
// previous one.
func (r *Runner) publish() error {
	x, z := r.model.Observe(r.Positions())
	rec, err := channel.EncodeReading(x, z)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if bytes.Equal(rec, r.last) {
		return nil
	}
	if err := r.out.WriteRecord(rec); err != nil {
		return fmt.Errorf("world: publish reading: %w", err)
	}
	r.last = rec

	if r.throttle.Allow() {
		px, pz := r.Positions()
		r.logger.Info("Reading", "x", px, "z", pz, "noisy_x", x, "noisy_z", z)
	}
	return nil
}
