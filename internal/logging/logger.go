package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"camsort/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// File, when set, receives every record in append mode.
	File string
	// Console also writes records to stderr. It is implied when File is empty.
	Console bool
}

// New constructs a slog logger using the provided options. Caller locations
// are included at debug level.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)

	var writers []io.Writer
	if opts.Console || opts.File == "" {
		writers = append(writers, os.Stderr)
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", opts.File, err)
		}
		writers = append(writers, file)
	}
	w := io.MultiWriter(writers...)
	addSource := level <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		return slog.New(newJSONHandler(w, level, addSource)), nil
	case "console", "":
		return slog.New(newConsoleHandler(w, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a stderr-only logger for one-shot CLI commands.
// Daemon processes use NewProcessLogger.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Console: true})
	}
	return New(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Console: true})
}

// NewProcessLogger creates a logger that writes to stderr and to a per-process
// file under the configured log directory. The camsort.log pointer is moved to
// the new file and files older than the retention window are pruned.
// It returns the logger and the path of the process log file.
func NewProcessLogger(cfg *config.Config, started time.Time) (*slog.Logger, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("config is required")
	}
	logDir := cfg.LogDir()
	logPath := filepath.Join(logDir, fmt.Sprintf("camsort-%s.log", started.UTC().Format("20060102T150405.000Z")))

	logger, err := New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    logPath,
		Console: true,
	})
	if err != nil {
		return nil, "", err
	}
	if err := EnsureCurrentLogPointer(logDir, logPath); err != nil {
		WarnWithContext(logger, "unable to update log pointer", "log_pointer_failed",
			Error(err),
			String(FieldErrorHint, "check permissions on the log directory"),
			String(FieldImpact, "camsort.log may point at an older process log"),
		)
	}
	PruneLogs(logger, logDir, "camsort-*.log", logPath, cfg.Logging.RetentionDays, started)
	return logger, logPath, nil
}

// parseLevel accepts slog level names ("debug", "WARN", "info+2"); anything
// else is info.
func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}
	return level
}
