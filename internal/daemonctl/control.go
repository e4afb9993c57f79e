package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"camsort/internal/config"
)

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// ProcessInfo reports whether a daemon holds the lock and, when the pid file
// is readable, its process id.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	running, err := lockHeld(cfg.LockPath())
	if err != nil || !running {
		return false, 0, err
	}
	pid, err := ReadPID(cfg.PIDPath())
	if err != nil {
		return true, 0, err
	}
	return true, pid, nil
}

func lockHeld(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

// ReadPID parses the daemon pid file.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", pidPath)
	}
	return pid, nil
}

// Signal delivers sig to the running daemon and returns its pid.
func Signal(cfg *config.Config, sig syscall.Signal) (int, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return 0, err
	}
	if !running {
		return 0, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil {
		return 0, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	return pid, nil
}

// Reload asks the daemon to re-read its configuration.
func Reload(cfg *config.Config) (int, error) {
	return Signal(cfg, syscall.SIGHUP)
}

// RunNow asks the daemon to start a run immediately.
func RunNow(cfg *config.Config) (int, error) {
	return Signal(cfg, syscall.SIGUSR1)
}

// StopAndTerminate sends SIGTERM and waits for the lock to be released. A
// daemon still holding it after gracePeriod is killed and its pid file
// removed.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pid, err := Signal(cfg, syscall.SIGTERM)
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid}
	if err := WaitForShutdown(cfg, gracePeriod); err == nil {
		return result, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return result, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	return result, nil
}

// WaitForShutdown polls the daemon lock until it is free or timeout elapses.
func WaitForShutdown(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		running, err := lockHeld(cfg.LockPath())
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not stop within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
