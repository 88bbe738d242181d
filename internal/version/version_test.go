package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGetRuntimeFields(t *testing.T) {
	info := Get()
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestApplyBuildSettings(t *testing.T) {
	info := Info{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"}
	applyBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2025-01-27T10:30:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	if info.GitCommit != "0123456" {
		t.Errorf("GitCommit = %q, want 0123456", info.GitCommit)
	}
	if info.BuildDate != "2025-01-27T10:30:00Z" {
		t.Errorf("BuildDate = %q", info.BuildDate)
	}
	if info.Version != "dev-dirty" {
		t.Errorf("Version = %q, want dev-dirty", info.Version)
	}
}

func TestLdflagsWinOverBuildSettings(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "feedbee", BuildDate: "yesterday"}
	applyBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2025-01-27T10:30:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})

	if info.GitCommit != "feedbee" || info.BuildDate != "yesterday" || info.Version != "1.2.0" {
		t.Errorf("info = %+v", info)
	}
}

func TestBanner(t *testing.T) {
	b := Banner("gantry")
	if !strings.HasPrefix(b, "gantry "+Version) {
		t.Errorf("Banner = %q", b)
	}
}
