package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"camsort/internal/config"
	"camsort/internal/history"
	"camsort/internal/logging"
	"camsort/internal/scheduler"
)

// ErrAlreadyRunning is returned by Start when another process holds the lock.
var ErrAlreadyRunning = errors.New("another camsort daemon instance is already running")

// Daemon coordinates the scheduler service and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *history.Store
	service *scheduler.Service
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Scheduler    scheduler.State
	Schedule     string
	Sources      int
	LastRun      *history.Run
	HistoryPath  string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon. store may be nil when run history is unavailable.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, service *scheduler.Service, logPath string) (*Daemon, error) {
	if cfg == nil || logger == nil || service == nil {
		return nil, errors.New("daemon requires config, logger, and scheduler service")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		service:  service,
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the scheduler service.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	d.closeInterruptedRuns(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.setErr(nil)
	d.running.Store(true)
	go d.serve(runCtx, d.done)

	d.logger.Info("camsort daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

func (d *Daemon) serve(ctx context.Context, done chan struct{}) {
	defer close(done)
	err := d.service.Run(ctx)
	d.setErr(err)
	d.running.Store(false)
	if err != nil {
		logging.ErrorWithContext(d.logger, "scheduler stopped after error", "daemon_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the cause and restart camsort daemon"),
		)
	}
}

func (d *Daemon) closeInterruptedRuns(ctx context.Context) {
	if d.store == nil {
		return
	}
	n, err := d.store.MarkInterrupted(ctx, time.Now())
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to close interrupted runs", "history_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "camsort history may list stale running entries"),
		)
		return
	}
	if n > 0 {
		d.logger.Info("closed runs interrupted by a previous process",
			logging.String(logging.FieldEventType, "history_interrupted_closed"),
			logging.Int64("runs", n),
		)
	}
}

// Stop stops the scheduler, waiting for an in-flight source to finish, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if d.cancel == nil {
		return
	}

	d.cancel()
	<-d.done
	d.cancel = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
		)
	}
	d.running.Store(false)
	d.logger.Info("camsort daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Done is closed when the scheduler service exits, whether through Stop or
// because of an unexpected error. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the error the scheduler service stopped with, if any.
func (d *Daemon) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Daemon) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

// Reload asks the scheduler to re-read the configuration before its next wait.
func (d *Daemon) Reload() {
	d.logger.Info("configuration reload requested", logging.String(logging.FieldEventType, "config_reload_requested"))
	d.service.RequestReload()
}

// RunNow queues an immediate run.
func (d *Daemon) RunNow() {
	d.logger.Info("immediate run requested", logging.String(logging.FieldEventType, "run_requested"))
	d.service.Trigger()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Scheduler:    d.service.State(),
		HistoryPath:  d.cfg.HistoryPath(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if snap := d.service.Snapshot(); snap != nil {
		status.Schedule = snap.Schedule.String()
		status.Sources = len(snap.Pairs)
	}
	if d.store != nil {
		if runs, err := d.store.Recent(ctx, 1); err == nil && len(runs) > 0 {
			status.LastRun = &runs[0]
		}
	}
	return status
}
