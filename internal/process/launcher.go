package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/smazurov/gantry/internal/worker"
)

// Launcher builds worker commands.
type Launcher struct {
	executable string
	terminal   []string
}

// NewLauncher creates a launcher running executable. terminal is the command
// line prefixed to interactive roles; empty runs them directly.
func NewLauncher(executable, terminal string) (*Launcher, error) {
	if executable == "" {
		return nil, errors.New("launcher: empty executable")
	}
	wrapper, err := parseCommand(terminal)
	if err != nil {
		return nil, fmt.Errorf("launcher: terminal %q: %w", terminal, err)
	}
	return &Launcher{executable: executable, terminal: wrapper}, nil
}

// Argv returns the full command line for role.
func (l *Launcher) Argv(role worker.Role, args []string) []string {
	argv := make([]string, 0, len(l.terminal)+1+len(args))
	if role.Interactive() {
		argv = append(argv, l.terminal...)
	}
	argv = append(argv, l.executable)
	return append(argv, args...)
}

// Command prepares the worker process. files become descriptors 3, 4, ...
// in the child. Standard output and error are shared with the supervisor.
// Without a terminal only the command console reads the supervisor's
// standard input; the inspection console then has no keyboard.
func (l *Launcher) Command(role worker.Role, args []string, files []*os.File) *exec.Cmd {
	argv := l.Argv(role, args)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.ExtraFiles = files
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if role == worker.RoleCommand && len(l.terminal) == 0 {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

// parseCommand splits a command string into arguments, honoring single and
// double quotes and backslash escapes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, errors.New("unclosed quote in command")
	}

	return args, nil
}
