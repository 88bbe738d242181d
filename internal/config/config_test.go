package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// TestConfig represents a test configuration structure.
type TestConfig struct {
	Config string

	StringField string   `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField   bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField    int      `toml:"test.int_field" env:"INT_FIELD"`
	FloatField  float64  `toml:"test.float_field" env:"FLOAT_FIELD"`
	SliceField  []string `toml:"test.slice_field" env:"SLICE_FIELD"`

	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gantry.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
float_field = 0.4
slice_field = ["item1", "item2", "item3"]

[nested]
value = "nested value"
`)

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "hello world" {
		t.Errorf("Expected StringField to be 'hello world', got '%s'", config.StringField)
	}
	if !config.BoolField {
		t.Errorf("Expected BoolField to be true")
	}
	if config.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", config.IntField)
	}
	if config.FloatField != 0.4 {
		t.Errorf("Expected FloatField to be 0.4, got %v", config.FloatField)
	}
	if !reflect.DeepEqual(config.SliceField, []string{"item1", "item2", "item3"}) {
		t.Errorf("Unexpected SliceField: %v", config.SliceField)
	}
	if config.NestedString != "nested value" {
		t.Errorf("Expected NestedString to be 'nested value', got '%s'", config.NestedString)
	}
}

func TestLoadConfigIntegerIntoFloat(t *testing.T) {
	path := writeTOML(t, "[test]\nfloat_field = 40\n")

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.FloatField != 40 {
		t.Errorf("Expected FloatField to be 40, got %v", config.FloatField)
	}
}

func TestLoadConfigTypeMismatch(t *testing.T) {
	path := writeTOML(t, "[test]\nint_field = \"many\"\n")

	err := LoadConfig(&TestConfig{Config: path}, nil)
	if err == nil || !strings.Contains(err.Error(), "test.int_field") {
		t.Errorf("expected error naming the key, got %v", err)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("GANTRY_STRING_FIELD", "env value")
	t.Setenv("GANTRY_BOOL_FIELD", "true")
	t.Setenv("GANTRY_INT_FIELD", "7")
	t.Setenv("GANTRY_FLOAT_FIELD", "1.25")
	t.Setenv("GANTRY_SLICE_FIELD", "a, b ,c")

	config := &TestConfig{}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "env value" || !config.BoolField || config.IntField != 7 || config.FloatField != 1.25 {
		t.Errorf("env values not applied: %+v", config)
	}
	if !reflect.DeepEqual(config.SliceField, []string{"a", "b", "c"}) {
		t.Errorf("Unexpected SliceField: %v", config.SliceField)
	}
}

func TestLoadConfigInvalidEnvValue(t *testing.T) {
	t.Setenv("GANTRY_INT_FIELD", "seven")

	if err := LoadConfig(&TestConfig{}, nil); err == nil {
		t.Error("expected error for non-numeric env value")
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeTOML(t, `
[supervisor]
sampling_ms = 500
watchdog_seconds = 30

[world]
noise = 0.8
`)
	t.Setenv("GANTRY_WATCHDOG_SECONDS", "20")
	t.Setenv("GANTRY_NOISE", "0.1")

	opts := DefaultOptions()
	cmd := &cobra.Command{Use: "gantry"}
	BindFlags(cmd.Flags(), &opts)
	if err := cmd.Flags().Parse([]string{"--config", path, "-n", "0.6"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if err := LoadConfig(&opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.SamplingMs != 500 {
		t.Errorf("SamplingMs = %d, want 500 from file", opts.SamplingMs)
	}
	if opts.WatchdogSeconds != 20 {
		t.Errorf("WatchdogSeconds = %d, want 20 from env", opts.WatchdogSeconds)
	}
	if opts.Noise != 0.6 {
		t.Errorf("Noise = %v, want 0.6 from flag", opts.Noise)
	}
	if opts.AxisXMax != 40 {
		t.Errorf("AxisXMax = %v, want default 40", opts.AxisXMax)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &TestConfig{Config: filepath.Join(t.TempDir(), "absent.toml"), StringField: "keep"}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig should ignore a missing file, got %v", err)
	}
	if config.StringField != "keep" {
		t.Errorf("StringField changed to %q", config.StringField)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeTOML(t, "[test\nstring_field = ")
	if err := LoadConfig(&TestConfig{Config: path}, nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "deep"},
		},
		"flat": 1,
	}

	if got := getNestedValue(data, "a.b.c"); got != "deep" {
		t.Errorf("a.b.c = %v, want deep", got)
	}
	if got := getNestedValue(data, "flat"); got != 1 {
		t.Errorf("flat = %v, want 1", got)
	}
	if got := getNestedValue(data, "a.x.c"); got != nil {
		t.Errorf("a.x.c = %v, want nil", got)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Config":          "config",
		"SamplingMs":      "sampling-ms",
		"AxisXMax":        "axis-x-max",
		"WatchdogSeconds": "watchdog-seconds",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingModuleLevels(t *testing.T) {
	path := writeTOML(t, `
[logging]
level = "warn"
format = "json"
journal = true
axis = "debug"
watchdog = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" || !cfg.Journal {
		t.Errorf("unexpected globals: %+v", cfg)
	}
	if cfg.Modules["axis"] != "debug" || cfg.Modules["watchdog"] != "error" {
		t.Errorf("unexpected modules: %v", cfg.Modules)
	}
	if _, ok := cfg.Modules["journal"]; ok {
		t.Error("journal must not be treated as a module")
	}

	if got := LoadLoggingConfig(""); got.Level != "info" || got.Format != "text" {
		t.Errorf("default logging config = %+v", got)
	}
}
