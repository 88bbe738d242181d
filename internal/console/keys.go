// Package console implements the two operator terminals of the plant: the
// command console that jogs the axes and the inspection console that shows
// noisy readings and issues out-of-band requests.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/gantry/internal/channel"
	"github.com/smazurov/gantry/internal/worker"
)

// ErrUnknownKey reports a console line that maps to no action.
var ErrUnknownKey = errors.New("console: unknown key")

// CommandKey is one parsed line of the command console.
type CommandKey struct {
	Axis string // "x" or "z", empty for Quit
	Byte byte   // command byte for the axis channel
	Quit bool
}

// ParseCommandKey maps "x+ x- x0 z+ z- z0" onto axis commands and "q" onto
// a quit request. Surrounding whitespace and case are ignored.
func ParseCommandKey(line string) (CommandKey, error) {
	key := strings.ToLower(strings.TrimSpace(line))
	if key == "q" {
		return CommandKey{Quit: true}, nil
	}
	if len(key) != 2 {
		return CommandKey{}, fmt.Errorf("%w: %q", ErrUnknownKey, line)
	}
	axis, cmd := key[:1], key[1]
	if axis != "x" && axis != "z" {
		return CommandKey{}, fmt.Errorf("%w: %q", ErrUnknownKey, line)
	}
	switch cmd {
	case channel.CommandIncrease, channel.CommandDecrease, channel.CommandStop:
		return CommandKey{Axis: axis, Byte: cmd}, nil
	default:
		return CommandKey{}, fmt.Errorf("%w: %q", ErrUnknownKey, line)
	}
}

// ParseInspectionKey maps "s" onto a halt and "r" onto a home request.
func ParseInspectionKey(line string) (worker.Request, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s":
		return worker.RequestHalt, nil
	case "r":
		return worker.RequestHome, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, line)
	}
}

// readLines feeds the lines of r into the returned channel, which is closed
// at EOF or on a read error. Empty lines are skipped.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				lines <- line
			}
		}
	}()
	return lines
}
