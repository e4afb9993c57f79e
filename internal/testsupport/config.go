package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"camsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config seeded with unique temp directories per
// test: a state directory, one manifest target "lists" and one source
// directory "cam1" classified by modification time. Options run afterwards.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Targets = []config.Target{{
		Name:      "lists",
		Directory: filepath.Join(base, "lists"),
		Kind:      config.KindManifest,
	}}
	cfgVal.Sources = []config.Source{{
		Directory: filepath.Join(base, "cam1"),
		Target:    "lists",
	}}
	if err := os.MkdirAll(cfgVal.Sources[0].Directory, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLookback sets the lookback window.
func WithLookback(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LookbackDays = days
	}
}

// WithDatePattern sets the date pattern of the first source.
func WithDatePattern(pattern string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources[0].DatePattern = pattern
	}
}

// WithLinkTarget adds a link target called name and a source directory that
// feeds it. Both live under the config's base directory.
func WithLinkTarget(name string) ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, name)
		src := filepath.Join(b.baseDir, name+"-src")
		if err := os.MkdirAll(src, 0o755); err != nil {
			b.t.Fatalf("mkdir link source: %v", err)
		}
		b.cfg.Targets = append(b.cfg.Targets, config.Target{Name: name, Directory: dir, Kind: config.KindLink})
		b.cfg.Sources = append(b.cfg.Sources, config.Source{Directory: src, Target: name})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfigFile encodes cfg as TOML next to it and returns the path.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(BaseDir(cfg), "camsort.toml")
	RewriteConfigFile(t, path, cfg)
	return path
}
