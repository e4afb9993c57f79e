package config_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"camsort/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camsort.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
schedule = "02:15:30"
lookback_days = 3

[paths]
state_dir = "%s"

[[targets]]
name = "lists"
directory = "%s"

[[sources]]
directory = "%s"
target = "lists"
date_pattern = "%%Y%%m%%d"
`

func TestLoadMinimalConfig(t *testing.T) {
	base := t.TempDir()
	state := filepath.Join(base, "state")
	lists := filepath.Join(base, "lists")
	cam := filepath.Join(base, "cam1")
	path := writeConfig(t, fmt.Sprintf(minimalConfig, state, lists, cam))

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if got := cfg.Schedule.String(); got != "02:15:30" {
		t.Fatalf("unexpected schedule %q", got)
	}
	if cfg.LookbackDays != 3 {
		t.Fatalf("unexpected lookback %d", cfg.LookbackDays)
	}
	if cfg.Targets[0].Kind != config.KindManifest {
		t.Fatalf("expected kind to default to manifest, got %q", cfg.Targets[0].Kind)
	}
	if cfg.ManifestDir() != lists {
		t.Fatalf("unexpected manifest dir %q", cfg.ManifestDir())
	}
	if cfg.Manifest.Encoding != "utf-8" || cfg.Manifest.LineEnding != config.LineEndingLF {
		t.Fatalf("unexpected manifest defaults: %+v", cfg.Manifest)
	}
	if cfg.LogDir() != filepath.Join(state, "logs") {
		t.Fatalf("unexpected log dir %q", cfg.LogDir())
	}
	if cfg.Sources[0].DatePattern != "%Y%m%d" {
		t.Fatalf("unexpected date pattern %q", cfg.Sources[0].DatePattern)
	}
}

func TestLoadWithoutFileFailsValidation(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, resolved, _, err := config.Load("")
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid without sources, got %v", err)
	}
	if resolved != "" {
		t.Fatalf("expected no resolved path on error, got %q", resolved)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	base := t.TempDir()
	override := filepath.Join(base, "override")
	t.Setenv("CAMSORT_STATE_DIR", override)
	t.Setenv("CAMSORT_LOG_LEVEL", "DEBUG")
	path := writeConfig(t, fmt.Sprintf(minimalConfig, filepath.Join(base, "state"), filepath.Join(base, "lists"), filepath.Join(base, "cam")))

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.StateDir != override {
		t.Fatalf("expected state dir override, got %q", cfg.Paths.StateDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level override, got %q", cfg.Logging.Level)
	}
}

func validConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Targets = []config.Target{{Name: "lists", Directory: filepath.Join(base, "lists"), Kind: config.KindManifest}}
	cfg.Sources = []config.Source{{Directory: filepath.Join(base, "cam"), Target: "lists"}}
	return cfg
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero lookback", func(c *config.Config) { c.LookbackDays = 0 }, "lookback_days"},
		{"no sources", func(c *config.Config) { c.Sources = nil }, "at least one"},
		{"unknown target", func(c *config.Config) { c.Sources[0].Target = "missing" }, "unknown target"},
		{"duplicate target", func(c *config.Config) { c.Targets = append(c.Targets, c.Targets[0]) }, "more than once"},
		{"two manifests", func(c *config.Config) {
			c.Targets = append(c.Targets, config.Target{Name: "other", Directory: "/tmp/other", Kind: config.KindManifest})
		}, "at most one manifest"},
		{"bad kind", func(c *config.Config) { c.Targets[0].Kind = "copy" }, "kind"},
		{"pattern without day", func(c *config.Config) { c.Sources[0].DatePattern = "%Y-%m" }, "date_pattern"},
		{"bad camera regex", func(c *config.Config) { c.Sources[0].CameraPattern = "cam(" }, "camera_pattern"},
		{"bad encoding", func(c *config.Config) { c.Manifest.Encoding = "klingon" }, "manifest.encoding"},
		{"bad line ending", func(c *config.Config) { c.Manifest.LineEnding = "cr" }, "line_ending"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("baseline config invalid: %v", err)
			}
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestLinkOnlyConfigHasNoManifestDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Targets[0].Kind = config.KindLink
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if dir := cfg.ManifestDir(); dir != "" {
		t.Fatalf("expected no manifest dir, got %q", dir)
	}
}

func TestParseScheduleTime(t *testing.T) {
	valid := map[string]string{
		"00:00":        "00:00",
		"7:05":         "07:05",
		"23:59:59":     "23:59:59",
		"12:00:01.5":   "12:00:01.500",
		"12:00:01.250": "12:00:01.250",
	}
	for in, want := range valid {
		st, err := config.ParseScheduleTime(in)
		if err != nil {
			t.Fatalf("ParseScheduleTime(%q) returned error: %v", in, err)
		}
		if st.String() != want {
			t.Fatalf("ParseScheduleTime(%q) = %q, want %q", in, st.String(), want)
		}
	}
	for _, in := range []string{"", "24:00", "23:59:59.5", "12", "12:60", "12:00:00.1234", "aa:bb", "1:2:3:4"} {
		if _, err := config.ParseScheduleTime(in); !errors.Is(err, config.ErrInvalid) {
			t.Fatalf("ParseScheduleTime(%q) expected ErrInvalid, got %v", in, err)
		}
	}
}

func TestScheduleTimeNext(t *testing.T) {
	st := config.MustParseScheduleTime("01:30")
	loc := time.FixedZone("test", 3600)

	before := time.Date(2024, 5, 10, 0, 59, 0, 0, loc)
	if got := st.Next(before); !got.Equal(time.Date(2024, 5, 10, 1, 30, 0, 0, loc)) {
		t.Fatalf("Next before schedule = %v", got)
	}
	at := time.Date(2024, 5, 10, 1, 30, 0, 0, loc)
	if got := st.Next(at); !got.Equal(time.Date(2024, 5, 11, 1, 30, 0, 0, loc)) {
		t.Fatalf("Next at schedule = %v", got)
	}
}

func TestScheduleTimeRoundTripsThroughTOML(t *testing.T) {
	cfg := validConfig(t)
	cfg.Schedule = config.MustParseScheduleTime("03:04:05")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	if decoded.Schedule != cfg.Schedule {
		t.Fatalf("schedule round trip: got %v want %v", decoded.Schedule, cfg.Schedule)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.ManifestDir() != filepath.Join(home, "camsort", "lists") {
		t.Fatalf("unexpected manifest dir %q", cfg.ManifestDir())
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.LogDir(), cfg.Targets[0].Directory} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
