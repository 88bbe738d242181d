package supervisor

import (
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Termination is the sticky external termination request. Once requested it
// stays requested; every request pokes the wake channel so a blocked wait can
// re-check it.
type Termination struct {
	requested atomic.Bool
	count     atomic.Uint64
	wake      chan struct{}
	onRequest func(source, sig string)
	logger    *slog.Logger
}

// NewTermination creates an unrequested termination flag. onRequest is
// called for every request, including repeated ones.
func NewTermination(logger *slog.Logger, onRequest func(source, sig string)) *Termination {
	if logger == nil {
		logger = slog.Default()
	}
	return &Termination{
		wake:      make(chan struct{}, 1),
		onRequest: onRequest,
		logger:    logger,
	}
}

// Request marks termination as requested.
func (t *Termination) Request(source, sig string) {
	t.requested.Store(true)
	n := t.count.Add(1)
	t.logger.Info("Termination requested", "source", source, "signal", sig, "count", n)
	if t.onRequest != nil {
		t.onRequest(source, sig)
	}
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Requested reports whether termination was requested.
func (t *Termination) Requested() bool {
	return t.requested.Load()
}

// Count returns the number of requests received.
func (t *Termination) Count() uint64 {
	return t.count.Load()
}

// Wake is poked after every request.
func (t *Termination) Wake() <-chan struct{} {
	return t.wake
}

// Notify turns SIGTERM and SIGINT into requests until stop is called.
func (t *Termination) Notify() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		for {
			select {
			case sig := <-sigs:
				t.Request("signal", sig.String())
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
		<-finished
	}
}
