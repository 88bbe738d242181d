package worker

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Request is an out-of-band instruction delivered to a worker by signal.
type Request int

const (
	RequestHalt Request = iota + 1
	RequestHome
	RequestTerminate
)

func (r Request) String() string {
	switch r {
	case RequestHalt:
		return "halt"
	case RequestHome:
		return "home"
	case RequestTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("request(%d)", int(r))
	}
}

// Signal returns the signal that carries the request.
func (r Request) Signal() syscall.Signal {
	switch r {
	case RequestHalt:
		return unix.SIGUSR1
	case RequestHome:
		return unix.SIGUSR2
	default:
		return unix.SIGTERM
	}
}

// requestFor maps a received signal onto a request.
func requestFor(sig os.Signal) (Request, bool) {
	switch sig {
	case unix.SIGUSR1:
		return RequestHalt, true
	case unix.SIGUSR2:
		return RequestHome, true
	case unix.SIGTERM:
		return RequestTerminate, true
	default:
		return 0, false
	}
}

// Send delivers a request to pid. Delivery is fire-and-forget.
func Send(pid int, r Request) error {
	if pid <= 0 {
		return fmt.Errorf("send %s: invalid pid %d", r, pid)
	}
	if err := unix.Kill(pid, r.Signal()); err != nil {
		return fmt.Errorf("send %s to pid %d: %w", r, pid, err)
	}
	return nil
}

// NotifyRequests installs handlers for the request signals and returns a
// channel the control loop drains once per tick. Keyboard interrupts are
// ignored: workers share the supervisor's process group and wait for its
// ordered shutdown instead. The returned function uninstalls the handlers.
func NotifyRequests(buffer int) (<-chan Request, func()) {
	signal.Ignore(unix.SIGINT)

	sigs := make(chan os.Signal, buffer)
	requests := make(chan Request, buffer)
	done := make(chan struct{})
	signal.Notify(sigs, unix.SIGUSR1, unix.SIGUSR2, unix.SIGTERM)

	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigs:
				if req, ok := requestFor(sig); ok {
					select {
					case requests <- req:
					case <-done:
						return
					}
				}
			}
		}
	}()

	return requests, func() {
		signal.Stop(sigs)
		close(done)
	}
}
