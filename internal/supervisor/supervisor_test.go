package supervisor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/gantry/internal/config"
	"github.com/smazurov/gantry/internal/events"
	"github.com/smazurov/gantry/internal/process"
	"github.com/smazurov/gantry/internal/watchdog"
	"github.com/smazurov/gantry/internal/worker"
)

// fakeWorker stands in for the gantry binary. It honors --ready-fd, writes
// to --log-fd when GANTRY_TEST_CHATTY is set and exits cleanly on SIGTERM.
const fakeWorker = `#!/bin/sh
log=
ready=
for a in "$@"; do
	case $a in
	--log-fd=*) log=${a#--log-fd=} ;;
	--ready-fd=*) ready=${a#--ready-fd=} ;;
	esac
done
trap 'exit 0' TERM
if [ -n "$ready" ] && [ -z "$GANTRY_TEST_NOREADY" ]; then
	eval "printf R >&$ready"
fi
while :; do
	if [ -n "$GANTRY_TEST_CHATTY" ]; then
		eval "echo tick >&$log"
	fi
	sleep 0.05
done
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFakeWorker(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gantry-fake")
	if err := os.WriteFile(path, []byte(fakeWorker), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(executable string) Config {
	return Config{
		Executable:   executable,
		Sampling:     50 * time.Millisecond,
		Watchdog:     300 * time.Millisecond,
		Noise:        0.4,
		AxisX:        AxisSpec{Velocity: 1, Min: 0, Max: 40},
		AxisZ:        AxisSpec{Velocity: 0.25, Min: 0, Max: 10},
		ReadyTimeout: 2 * time.Second,
		KillTimeout:  2 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
		RunID:        "test-run",
	}
}

func newTestSupervisor(t *testing.T, cfg Config, bus *events.Bus) *Supervisor {
	t.Helper()
	dir, err := OpenLogDir(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dir.Close() })

	s, err := New(cfg, dir, bus, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type runResult struct {
	result Result
	err    error
}

func runAsync(s *Supervisor) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		r, err := s.Run(context.Background())
		done <- runResult{r, err}
	}()
	return done
}

func waitRun(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for supervisor")
		return runResult{}
	}
}

func TestRun_ExpiresAndReapsEveryWorker(t *testing.T) {
	bus := events.New()
	completed := make(chan any, 16)
	unsub := events.SubscribeToChannel[events.ShutdownCompletedEvent](bus, completed)
	defer unsub()

	s := newTestSupervisor(t, testConfig(writeFakeWorker(t)), bus)
	r := waitRun(t, runAsync(s))
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}

	if r.result.Outcome != watchdog.OutcomeExpired {
		t.Errorf("outcome = %q, want expired", r.result.Outcome)
	}
	if len(r.result.Reap.Reaped) != len(Roles) || len(r.result.Reap.Anomalies) != 0 {
		t.Fatalf("reap = %+v", r.result.Reap)
	}

	infos := s.Workers()
	for i, info := range infos {
		if info.Role != Roles[i] {
			t.Errorf("worker %d = %s, want %s", i, info.Role, Roles[i])
		}
		if info.State != process.StateExited || info.ExitStatus != "exit status 0" {
			t.Errorf("%s: state %s status %q", info.Role, info.State, info.ExitStatus)
		}
	}
	if s.Phase() != PhaseStopped {
		t.Errorf("phase = %s, want stopped", s.Phase())
	}

	for _, name := range []string{MasterLogFile, "axis-x.log", "axis-z.log", "world.log", "command.log", "inspection.log"} {
		if _, err := os.Stat(filepath.Join(s.dir.Path, name)); err != nil {
			t.Errorf("log file %s: %v", name, err)
		}
	}

	select {
	case ev := <-completed:
		if got := ev.(events.ShutdownCompletedEvent); got.Reaped != len(Roles) {
			t.Errorf("completed event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Error("no ShutdownCompletedEvent")
	}
}

func TestRun_ActivityDefersExpiry(t *testing.T) {
	t.Setenv("GANTRY_TEST_CHATTY", "1")
	s := newTestSupervisor(t, testConfig(writeFakeWorker(t)), nil)

	done := runAsync(s)
	time.Sleep(800 * time.Millisecond)

	select {
	case r := <-done:
		t.Fatalf("plant stopped despite activity: %+v", r)
	default:
	}
	if s.Phase() != PhaseWatching {
		t.Errorf("phase = %s, want watching", s.Phase())
	}
	if s.Watchdog().Resets == 0 {
		t.Error("watchdog never reset")
	}

	s.RequestShutdown("api")
	r := waitRun(t, done)
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if r.result.Outcome != watchdog.OutcomeTerminated {
		t.Errorf("outcome = %q, want terminated", r.result.Outcome)
	}
	if len(r.result.Reap.Reaped) != len(Roles) {
		t.Errorf("reaped %d workers, want %d", len(r.result.Reap.Reaped), len(Roles))
	}
}

func TestRun_TerminationBeforeWatch(t *testing.T) {
	s := newTestSupervisor(t, testConfig(writeFakeWorker(t)), nil)
	s.RequestShutdown("test")

	r := waitRun(t, runAsync(s))
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if r.result.Outcome != watchdog.OutcomeTerminated {
		t.Errorf("outcome = %q, want terminated", r.result.Outcome)
	}
	if len(r.result.Reap.Reaped) != len(Roles) {
		t.Errorf("reaped %d workers, want %d", len(r.result.Reap.Reaped), len(Roles))
	}
}

func TestRun_ReadinessBarrier(t *testing.T) {
	cfg := testConfig(writeFakeWorker(t))
	cfg.ReadinessBarrier = true
	s := newTestSupervisor(t, cfg, nil)

	r := waitRun(t, runAsync(s))
	if r.err != nil {
		t.Fatalf("Run: %v", r.err)
	}
	if len(r.result.Reap.Reaped) != len(Roles) {
		t.Errorf("reaped %d workers, want %d", len(r.result.Reap.Reaped), len(Roles))
	}
}

func TestRun_ReadinessTimeoutIsFatal(t *testing.T) {
	t.Setenv("GANTRY_TEST_NOREADY", "1")
	cfg := testConfig(writeFakeWorker(t))
	cfg.ReadinessBarrier = true
	cfg.ReadyTimeout = 200 * time.Millisecond
	s := newTestSupervisor(t, cfg, nil)

	r := waitRun(t, runAsync(s))
	if !errors.Is(r.err, worker.ErrReadyTimeout) {
		t.Fatalf("Run error = %v, want ErrReadyTimeout", r.err)
	}
	if len(r.result.Reap.Reaped) != 1 || r.result.Reap.Reaped[0].Role != worker.RoleAxisX {
		t.Errorf("reaped = %+v, want axis-x only", r.result.Reap.Reaped)
	}
	if len(s.Workers()) != 1 {
		t.Errorf("workers = %+v, want only axis-x spawned", s.Workers())
	}
}

func TestRun_SpawnFailureIsFatal(t *testing.T) {
	s := newTestSupervisor(t, testConfig("/nonexistent/gantry"), nil)

	r := waitRun(t, runAsync(s))
	if r.err == nil {
		t.Fatal("expected spawn error")
	}
	infos := s.Workers()
	if len(infos) != 1 || infos[0].State != process.StateError {
		t.Errorf("workers = %+v", infos)
	}
	if len(r.result.Reap.Reaped) != 0 {
		t.Errorf("reaped = %+v, want none", r.result.Reap.Reaped)
	}
}

// lockedBuffer collects log output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_LogsCarryRunIDOnce(t *testing.T) {
	dir, err := OpenLogDir(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dir.Close() })

	// The process-wide handler already tags every record with the run id.
	out := &lockedBuffer{}
	logger := slog.New(slog.NewTextHandler(out, nil)).With("run_id", "test-run")

	s, err := New(testConfig("/nonexistent/gantry"), dir, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	if r := waitRun(t, runAsync(s)); r.err == nil {
		t.Fatal("expected spawn error")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) == 0 || !strings.Contains(out.String(), "Starting plant") {
		t.Fatalf("no startup record in %q", out.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, "run_id="); n != 1 {
			t.Errorf("run_id appears %d times in %q", n, line)
		}
	}
}

func TestRequestAxis(t *testing.T) {
	s := newTestSupervisor(t, testConfig(writeFakeWorker(t)), nil)

	if err := s.RequestAxis("y", worker.RequestHalt); !errors.Is(err, ErrUnknownAxis) {
		t.Errorf("RequestAxis(y) = %v, want ErrUnknownAxis", err)
	}
	if err := s.RequestAxis("x", worker.RequestHalt); err == nil {
		t.Error("RequestAxis before spawn should fail")
	}
}

func TestAxisRole(t *testing.T) {
	tests := []struct {
		in   string
		want worker.Role
		ok   bool
	}{
		{"x", worker.RoleAxisX, true},
		{"Z", worker.RoleAxisZ, true},
		{"w", "", false},
	}
	for _, tt := range tests {
		got, err := AxisRole(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("AxisRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestOpenLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs")

	d, err := OpenLogDir(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.Existed {
		t.Error("fresh directory reported as existing")
	}
	d.Close()

	d, err = OpenLogDir(path)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Existed {
		t.Error("reused directory not reported")
	}
	if err := d.Close(); err != nil {
		t.Error(err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenLogDir(file); err == nil {
		t.Error("a regular file should not be accepted as log dir")
	}
}

func TestConfigFromOptions(t *testing.T) {
	o := config.DefaultOptions()
	o.SamplingMs = 250
	o.AxisZMax = 8
	o.ReadinessBarrier = true

	cfg := ConfigFromOptions(o, "/usr/bin/gantry", "run-1")
	if cfg.Sampling != 250*time.Millisecond || cfg.Watchdog != time.Minute {
		t.Errorf("timing = %v/%v", cfg.Sampling, cfg.Watchdog)
	}
	if cfg.AxisZ != (AxisSpec{Velocity: 0.25, Min: 0, Max: 8}) {
		t.Errorf("axis z = %+v", cfg.AxisZ)
	}
	if !cfg.ReadinessBarrier || cfg.KillTimeout != DefaultKillTimeout {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Executable != "/usr/bin/gantry" || cfg.RunID != "run-1" || cfg.Terminal != o.Terminal {
		t.Errorf("cfg = %+v", cfg)
	}
}
