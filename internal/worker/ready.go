package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/smazurov/gantry/internal/channel"
)

// ReadyByte is written by a worker once its request handlers are installed.
const ReadyByte byte = 'R'

// ErrReadyTimeout reports a worker that did not become ready in time.
var ErrReadyTimeout = errors.New("worker: readiness timeout")

// SignalReady completes the worker side of the readiness handshake.
// A nil endpoint means the barrier is disabled.
func SignalReady(ep *channel.Endpoint) error {
	if ep == nil {
		return nil
	}
	defer ep.Close()
	if err := ep.WriteRecord([]byte{ReadyByte}); err != nil {
		return fmt.Errorf("signal ready: %w", err)
	}
	return nil
}

// AwaitReady blocks until the worker writes ReadyByte or the timeout elapses.
// A worker that exits before signalling closes the pipe, which is reported as
// an error rather than a timeout.
func AwaitReady(ep *channel.Endpoint, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w after %s", ErrReadyTimeout, timeout)
		}

		ready, err := ep.WaitReadable(remaining)
		if errors.Is(err, channel.ErrInterrupted) {
			continue
		}
		if err != nil {
			return err
		}
		if !ready {
			continue
		}

		buf := make([]byte, 1)
		if _, err := ep.Read(buf); err != nil {
			return fmt.Errorf("await ready: %w", err)
		}
		if buf[0] != ReadyByte {
			return fmt.Errorf("await ready: unexpected byte %q", buf[0])
		}
		return nil
	}
}
