package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"axis":     "debug",
			"watchdog": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"axis", true, true, true},
		{"watchdog", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestSinkReceivesRecordsWithAttrs(t *testing.T) {
	resetState()

	var sink bytes.Buffer
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Sink:   &sink,
		Attrs:  []any{"role", "axis-x", "run_id", "abc"},
	})

	GetLogger("axis").Info("Position published", "position", "1.00")

	out := sink.String()
	for _, want := range []string{"Position published", "role=axis-x", "run_id=abc", "module=axis", "position=1.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("sink output missing %q: %s", want, out)
		}
	}
}

func TestBufferCapturesEntries(t *testing.T) {
	resetState()

	Initialize(Config{Level: "debug", Format: "text"})
	GetLogger("supervisor").Warn("Reap anomaly", "pid", 42)

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 {
		t.Fatalf("expected 1 buffered entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Module != "supervisor" || entry.Level != "warn" || entry.Message != "Reap anomaly" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Attributes["pid"] != int64(42) {
		t.Errorf("pid attribute = %v (%T), want 42", entry.Attributes["pid"], entry.Attributes["pid"])
	}

	line := FormatLogLine(entry)
	if !strings.Contains(line, "[WARN] [supervisor] Reap anomaly pid=42") {
		t.Errorf("unexpected formatted line: %s", line)
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("world")
	handlerBefore := loggerBefore.Handler()
	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"world": "debug"},
	})

	// The LevelVar is shared, so the old handler sees the new level too
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger handed out before Initialize should follow the configured module level")
	}
	if !GetLogger("world").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Rebuilt logger should have debug enabled")
	}
}

func TestSetLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	handler := GetLogger("console").Handler()
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should start disabled")
	}
	if !SetLevel("console", "debug") {
		t.Fatal("SetLevel returned false for a known module")
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after SetLevel")
	}
	if SetLevel("console", "loud") {
		t.Error("SetLevel accepted an invalid level")
	}
	if SetLevel("missing", "debug") {
		t.Error("SetLevel accepted an unknown module")
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		rb.Write(LogEntry{Message: msg})
	}

	all := rb.ReadAll()
	if len(all) != 3 || all[0].Message != "b" || all[2].Message != "d" {
		t.Errorf("ReadAll = %+v, want b,c,d", all)
	}
	tail := rb.Tail(2)
	if len(tail) != 2 || tail[0].Message != "c" || tail[1].Message != "d" {
		t.Errorf("Tail(2) = %+v, want c,d", tail)
	}
	if rb.Count() != 3 {
		t.Errorf("Count = %d, want 3", rb.Count())
	}
}

func TestThrottle(t *testing.T) {
	throttle := NewThrottle(50 * time.Millisecond)
	if throttle.Interval() != MinThrottleInterval {
		t.Fatalf("interval = %v, want floor %v", throttle.Interval(), MinThrottleInterval)
	}

	now := time.Unix(1000, 0)
	throttle.now = func() time.Time { return now }

	if !throttle.Allow() {
		t.Fatal("first line should be allowed")
	}
	now = now.Add(100 * time.Millisecond)
	if throttle.Allow() {
		t.Error("line inside the interval should be suppressed")
	}
	now = now.Add(100 * time.Millisecond)
	if !throttle.Allow() {
		t.Error("line after the interval should be allowed")
	}

	if got := NewThrottle(time.Second).Interval(); got != time.Second {
		t.Errorf("interval for slow loop = %v, want 1s", got)
	}
}
