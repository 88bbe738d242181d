package channel

import (
	"errors"
	"fmt"
	"os"
)

// Pipe names of the plant topology.
const (
	PipeCommandX  = "cmd-x"
	PipeCommandZ  = "cmd-z"
	PipePositionX = "pos-x"
	PipePositionZ = "pos-z"
	PipeReading   = "reading"
)

// PlantPipes lists the five channels every plant needs, in creation order.
var PlantPipes = []string{PipeCommandX, PipeCommandZ, PipePositionX, PipePositionZ, PipeReading}

// Pipe is a unidirectional kernel pipe with both endpoints still held locally.
type Pipe struct {
	Name   string
	Reader *Endpoint
	Writer *Endpoint
}

// NewPipe allocates a pipe.
func NewPipe(name string) (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create pipe %s: %w", name, err)
	}
	return &Pipe{
		Name:   name,
		Reader: NewEndpoint(name+".r", r),
		Writer: NewEndpoint(name+".w", w),
	}, nil
}

// Close releases both local endpoints.
func (p *Pipe) Close() error {
	return errors.Join(p.Reader.Close(), p.Writer.Close())
}

// Fabric is the set of pipes wiring the workers together.
type Fabric struct {
	pipes map[string]*Pipe
	order []string
}

// NewFabric creates one pipe per name. On failure every pipe created so far
// is closed and the error is returned; there is no partial fabric.
func NewFabric(names ...string) (*Fabric, error) {
	f := &Fabric{pipes: make(map[string]*Pipe, len(names))}
	for _, name := range names {
		if _, dup := f.pipes[name]; dup {
			f.Close()
			return nil, fmt.Errorf("duplicate pipe %s", name)
		}
		p, err := NewPipe(name)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.pipes[name] = p
		f.order = append(f.order, name)
	}
	return f, nil
}

// Pipe returns the named pipe, or nil.
func (f *Fabric) Pipe(name string) *Pipe {
	return f.pipes[name]
}

// Names returns the pipe names in creation order.
func (f *Fabric) Names() []string {
	return append([]string(nil), f.order...)
}

// Close releases every local endpoint. Workers hold their own duplicates,
// so this is called once all of them have been spawned.
func (f *Fabric) Close() error {
	var errs []error
	for _, name := range f.order {
		errs = append(errs, f.pipes[name].Close())
	}
	return errors.Join(errs...)
}
