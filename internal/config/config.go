package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ErrInvalid is wrapped by every structural validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Target kinds.
const (
	KindManifest = "manifest"
	KindLink     = "link"
)

// Manifest line endings.
const (
	LineEndingLF   = "lf"
	LineEndingCRLF = "crlf"
)

// Paths contains directories owned by camsort itself.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Manifest describes how manifest files are encoded.
type Manifest struct {
	Encoding   string `toml:"encoding"`
	BOM        bool   `toml:"bom"`
	LineEnding string `toml:"line_ending"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Target is a named output location. A manifest target owns the manifest
// directory; a link target receives per-day hard-link trees.
type Target struct {
	Name      string `toml:"name"`
	Directory string `toml:"directory"`
	Kind      string `toml:"kind"`
}

// Source is a recording directory assorted into one target.
type Source struct {
	Directory     string `toml:"directory"`
	Target        string `toml:"target"`
	DatePattern   string `toml:"date_pattern"`
	CameraPattern string `toml:"camera_pattern"`
}

// Config encapsulates all configuration values for camsort.
//
// Configuration sections:
//   - Schedule/LookbackDays: when the daily run fires and how many past days it covers
//   - Paths: state directory for lock, history database and logs
//   - Manifest: text encoding of manifest files
//   - Logging: log format, level, and retention
//   - Targets/Sources: what gets assorted and where it goes
type Config struct {
	Schedule     ScheduleTime `toml:"schedule"`
	LookbackDays int          `toml:"lookback_days"`
	Paths        Paths        `toml:"paths"`
	Manifest     Manifest     `toml:"manifest"`
	Logging      Logging      `toml:"logging"`
	Targets      []Target     `toml:"targets"`
	Sources      []Source     `toml:"sources"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/camsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("%w: parse config: %w", ErrInvalid, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// ResolvePath reports which file Load would read for path and whether it exists.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("camsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. Target directories
// are created on a best-effort basis so a run can proceed when backup storage
// is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, target := range c.Targets {
		_ = os.MkdirAll(target.Directory, 0o755)
	}
	return nil
}

// LogDir is where daemon process logs are written.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "camsortd.lock")
}

// PIDPath holds the process id of the running daemon.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "camsortd.pid")
}

// HistoryPath is the SQLite run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// TargetByName returns the named target.
func (c *Config) TargetByName(name string) (Target, bool) {
	for _, target := range c.Targets {
		if target.Name == name {
			return target, true
		}
	}
	return Target{}, false
}

// ManifestDir returns the directory of the manifest target, or "" when every
// target is a link target.
func (c *Config) ManifestDir() string {
	for _, target := range c.Targets {
		if target.Kind == KindManifest {
			return target.Directory
		}
	}
	return ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
