// Package channel carries fixed-size text records between plant processes
// over unidirectional pipes.
package channel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrInterrupted reports a wait cut short by a signal. Callers treat it as
	// "nothing ready this tick".
	ErrInterrupted = errors.New("channel: wait interrupted")
	// ErrShortWrite reports a record that was not written in one piece.
	ErrShortWrite = errors.New("channel: short write")
)

// Endpoint is one end of a unidirectional pipe owned by a single process.
type Endpoint struct {
	name string
	file *os.File
	fd   int

	closeOnce sync.Once
	closeErr  error
}

// NewEndpoint wraps an open file. The descriptor is switched to blocking mode;
// readiness is always established with WaitReadable or Poll first.
func NewEndpoint(name string, file *os.File) *Endpoint {
	return &Endpoint{
		name: name,
		file: file,
		fd:   int(file.Fd()),
	}
}

// FromFD adopts a descriptor inherited from the parent process.
func FromFD(name string, fd int) (*Endpoint, error) {
	if fd < 0 {
		return nil, fmt.Errorf("endpoint %s: invalid descriptor %d", name, fd)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("endpoint %s: descriptor %d not open: %w", name, fd, err)
	}
	return NewEndpoint(name, os.NewFile(uintptr(fd), name)), nil
}

// Name returns the endpoint's label.
func (e *Endpoint) Name() string {
	return e.name
}

// File returns the underlying file, used when handing the endpoint to a child.
func (e *Endpoint) File() *os.File {
	return e.file
}

// Fd returns the descriptor number in this process.
func (e *Endpoint) Fd() int {
	return e.fd
}

// WaitReadable blocks until data (or EOF) is available or the timeout elapses.
func (e *Endpoint) WaitReadable(timeout time.Duration) (bool, error) {
	ready, err := Poll(timeout, e)
	if err != nil {
		return false, err
	}
	return ready[0], nil
}

// Read performs a single read. A zero-length read is reported as io.EOF.
func (e *Endpoint) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(e.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", e.name, err)
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// ReadRecord reads exactly size bytes.
func (e *Endpoint) ReadRecord(size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(e, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read %s: truncated record: %w", e.name, err)
		}
		return nil, err
	}
	return buf, nil
}

// Write implements io.Writer with a single write call.
func (e *Endpoint) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(e.fd, p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("write %s: %w", e.name, err)
		}
		return n, nil
	}
}

// WriteRecord writes rec in one call. Records are at most a few bytes so a
// pipe write is atomic; anything less than the full record is ErrShortWrite.
func (e *Endpoint) WriteRecord(rec []byte) error {
	n, err := e.Write(rec)
	if err != nil {
		return err
	}
	if n != len(rec) {
		return fmt.Errorf("%w on %s: %d of %d bytes", ErrShortWrite, e.name, n, len(rec))
	}
	return nil
}

// Close releases the descriptor. Repeated calls return the first result.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.file.Close()
	})
	return e.closeErr
}

// Poll waits until at least one endpoint is readable, hung up, or the timeout
// elapses, and reports readiness per endpoint in argument order.
// A negative timeout waits indefinitely.
func Poll(timeout time.Duration, endpoints ...*Endpoint) ([]bool, error) {
	fds := make([]unix.PollFd, len(endpoints))
	for i, ep := range endpoints {
		fds[i] = unix.PollFd{Fd: int32(ep.fd), Events: unix.POLLIN}
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	if _, err := unix.Poll(fds, ms); err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("poll: %w", err)
	}

	ready := make([]bool, len(endpoints))
	for i, pfd := range fds {
		ready[i] = pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
	}
	return ready, nil
}
