package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"camsort/internal/config"
	"camsort/internal/daemon"
	"camsort/internal/history"
	"camsort/internal/logging"
	"camsort/internal/scheduler"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// ConfigPath is watched for changes and re-read on reload. Empty uses
	// the default resolution of config.Load.
	ConfigPath string
	LogLevel   string
	RunNow     bool
}

// Run starts the camsort daemon runtime loop. It returns when SIGINT or
// SIGTERM arrives, or when the scheduler stops on an unexpected error.
// SIGHUP requests a configuration reload and SIGUSR1 an immediate run.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	control := make(chan os.Signal, 2)
	signal.Notify(control, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(control)

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, logPath, err := logging.NewProcessLogger(cfg, time.Now())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "runs are assorted but not recorded"),
			logging.String(logging.FieldErrorHint, "check the state directory and history.db permissions"),
		)
		store = nil
	}

	var execOpts []scheduler.ExecutorOption
	if store != nil {
		execOpts = append(execOpts, scheduler.WithRecorder(store))
	}
	svcOpts := []scheduler.Option{}
	if path, err := resolveWatchPath(opts.ConfigPath); err == nil && path != "" {
		svcOpts = append(svcOpts, scheduler.WithConfigPath(path))
	}
	if opts.RunNow {
		svcOpts = append(svcOpts, scheduler.WithRunOnStart())
	}
	svc := scheduler.New(
		scheduler.FileLoader(opts.ConfigPath),
		scheduler.NewExecutor(logger, execOpts...),
		logger,
		svcOpts...,
	)

	d, err := daemon.New(cfg, store, logger, svc, logPath)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	for {
		select {
		case <-signalCtx.Done():
			logger.Info("camsort daemon shutting down")
			d.Stop()
			return nil
		case sig := <-control:
			if sig == syscall.SIGUSR1 {
				d.RunNow()
			} else {
				d.Reload()
			}
		case <-d.Done():
			return d.Err()
		}
	}
}

// resolveWatchPath returns the configuration file the daemon should watch,
// or "" when no file exists.
func resolveWatchPath(path string) (string, error) {
	resolved, exists, err := config.ResolvePath(path)
	if err != nil || !exists {
		return "", err
	}
	return resolved, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
