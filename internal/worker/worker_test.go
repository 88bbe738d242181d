package worker

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/smazurov/gantry/internal/channel"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		role        Role
		subcommand  string
		interactive bool
		logFile     string
	}{
		{RoleAxisX, "motor", false, "axis-x.log"},
		{RoleAxisZ, "motor", false, "axis-z.log"},
		{RoleWorld, "world", false, "world.log"},
		{RoleCommand, "command", true, "command.log"},
		{RoleInspection, "inspection", true, "inspection.log"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.Subcommand(); got != tt.subcommand {
				t.Errorf("Subcommand() = %q, want %q", got, tt.subcommand)
			}
			if got := tt.role.Interactive(); got != tt.interactive {
				t.Errorf("Interactive() = %v, want %v", got, tt.interactive)
			}
			if got := tt.role.LogFile(); got != tt.logFile {
				t.Errorf("LogFile() = %q, want %q", got, tt.logFile)
			}
		})
	}
}

func TestFileSetNumbering(t *testing.T) {
	var set FileSet
	if fd := set.Add(os.Stdin); fd != 3 {
		t.Errorf("first fd = %d, want 3", fd)
	}
	if fd := set.Add(os.Stdout); fd != 4 {
		t.Errorf("second fd = %d, want 4", fd)
	}
	if len(set.Files()) != 2 {
		t.Errorf("Files() has %d entries, want 2", len(set.Files()))
	}
}

func TestMotorArgv(t *testing.T) {
	args := MotorArgs{
		Common:     Common{LogFD: 5, RunID: "run-1"},
		Name:       "X",
		Velocity:   0.25,
		Min:        0,
		Max:        10,
		CmdFD:      3,
		PosFD:      4,
		SamplingMs: 100,
		ReadyFD:    NoFD,
	}

	want := []string{
		"motor", "--name=X", "--velocity=0.25", "--min=0", "--max=10",
		"--cmd-fd=3", "--pos-fd=4", "--sampling-ms=100", "--log-fd=5", "--run-id=run-1",
	}
	if got := args.Argv(); !reflect.DeepEqual(got, want) {
		t.Errorf("Argv() = %v\nwant %v", got, want)
	}

	args.ReadyFD = 6
	args.LogLevel = "debug"
	got := args.Argv()
	if got[8] != "--ready-fd=6" || got[10] != "--log-level=debug" {
		t.Errorf("optional flags misplaced: %v", got)
	}
}

func TestConsoleArgv(t *testing.T) {
	cmd := CommandArgs{Common: Common{LogFD: 5, RunID: "r"}, XFD: 3, ZFD: 4, MasterPID: 77}
	want := []string{"command", "--x-fd=3", "--z-fd=4", "--master-pid=77", "--log-fd=5", "--run-id=r"}
	if got := cmd.Argv(); !reflect.DeepEqual(got, want) {
		t.Errorf("command Argv() = %v", got)
	}

	insp := InspectionArgs{Common: Common{LogFD: 4, RunID: "r"}, InFD: 3, XPID: 10, ZPID: 11, SamplingMs: 50}
	want = []string{"inspection", "--in-fd=3", "--x-pid=10", "--z-pid=11", "--sampling-ms=50", "--log-fd=4", "--run-id=r"}
	if got := insp.Argv(); !reflect.DeepEqual(got, want) {
		t.Errorf("inspection Argv() = %v", got)
	}

	world := WorldArgs{Common: Common{LogFD: 6, RunID: "r"}, XFD: 3, ZFD: 4, OutFD: 5, SamplingMs: 50, Noise: 0.4, ReadyFD: NoFD}
	want = []string{"world", "--x-fd=3", "--z-fd=4", "--out-fd=5", "--sampling-ms=50", "--noise=0.4", "--log-fd=6", "--run-id=r"}
	if got := world.Argv(); !reflect.DeepEqual(got, want) {
		t.Errorf("world Argv() = %v", got)
	}
}

func TestRequestSignals(t *testing.T) {
	for _, req := range []Request{RequestHalt, RequestHome, RequestTerminate} {
		got, ok := requestFor(req.Signal())
		if !ok || got != req {
			t.Errorf("requestFor(%v.Signal()) = %v, %v", req, got, ok)
		}
	}
	if _, ok := requestFor(os.Interrupt); ok {
		t.Error("interrupt must not map to a request")
	}
}

func TestNotifyRequestsDeliversSignals(t *testing.T) {
	requests, stop := NotifyRequests(4)
	defer stop()

	if err := Send(os.Getpid(), RequestHome); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case req := <-requests:
		if req != RequestHome {
			t.Errorf("received %v, want home", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request not delivered")
	}

	if err := Send(0, RequestHalt); err == nil {
		t.Error("Send to pid 0 should fail")
	}
}

func TestReadinessHandshake(t *testing.T) {
	p, err := channel.NewPipe("ready")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := SignalReady(nil); err != nil {
		t.Errorf("disabled barrier returned %v", err)
	}

	go SignalReady(p.Writer)

	if err := AwaitReady(p.Reader, 2*time.Second); err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
}

func TestAwaitReadyTimeout(t *testing.T) {
	p, err := channel.NewPipe("ready")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	err = AwaitReady(p.Reader, 50*time.Millisecond)
	if !errors.Is(err, ErrReadyTimeout) {
		t.Errorf("AwaitReady error = %v, want ErrReadyTimeout", err)
	}
}

func TestAwaitReadyWorkerGone(t *testing.T) {
	p, err := channel.NewPipe("ready")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	p.Writer.Close()

	err = AwaitReady(p.Reader, time.Second)
	if err == nil || errors.Is(err, ErrReadyTimeout) {
		t.Errorf("AwaitReady error = %v, want closed-pipe error", err)
	}
}
