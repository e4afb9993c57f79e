package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"camsort/internal/config"
	"camsort/internal/history"
	"camsort/internal/logging"
)

// State is the position of the service loop.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateArmed
	StateExecuting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateArmed:
		return "armed"
	case StateExecuting:
		return "executing"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const jobName = "camsort-assort"

// Service fires one run per day at the configured time of day.
type Service struct {
	loader     Loader
	runner     Runner
	logger     *slog.Logger
	configPath string
	location   *time.Location
	runOnStart bool

	snapshot atomic.Pointer[Snapshot]
	state    atomic.Int32
	reload   chan struct{}
	fire     chan history.Trigger

	// Owned by the Run goroutine.
	cron gocron.Scheduler
	job  gocron.Job
}

// Option configures a Service.
type Option func(*Service)

// WithConfigPath watches path and requests a reload whenever it is written.
func WithConfigPath(path string) Option {
	return func(s *Service) { s.configPath = path }
}

// WithRunOnStart queues a manual run as soon as the service is armed.
func WithRunOnStart() Option {
	return func(s *Service) { s.runOnStart = true }
}

// WithLocation sets the time zone the schedule is interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New builds a Service. Nothing runs until Run is called.
func New(loader Loader, runner Runner, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		loader:   loader,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		location: time.Local,
		reload:   make(chan struct{}, 1),
		fire:     make(chan history.Trigger, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the loop position.
func (s *Service) State() State { return State(s.state.Load()) }

// Snapshot returns the active configuration, or nil before the first load.
func (s *Service) Snapshot() *Snapshot { return s.snapshot.Load() }

// RequestReload marks the configuration as stale. Requests made while one is
// already pending collapse into it.
func (s *Service) RequestReload() {
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// Trigger queues an immediate run. At most one run is queued.
func (s *Service) Trigger() { s.queue(history.TriggerManual) }

func (s *Service) queue(trigger history.Trigger) {
	select {
	case s.fire <- trigger:
	default:
	}
}

// Run loads the configuration, arms the daily job and serves runs until ctx
// is cancelled. An invalid initial configuration or an unexpected run error
// stops the service and is returned; cancellation returns nil.
func (s *Service) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	s.setState(StateValidating)
	snap, err := s.load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	s.snapshot.Store(snap)

	cron, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	s.cron = cron
	defer func() {
		if err := cron.Shutdown(); err != nil {
			s.logger.Debug("scheduler shutdown", logging.Error(err))
		}
		s.cron, s.job = nil, nil
	}()
	if err := s.arm(snap.Schedule); err != nil {
		return err
	}
	cron.Start()

	if s.configPath != "" {
		if err := s.watchConfig(ctx, s.configPath); err != nil {
			logging.WarnWithContext(s.logger, "configuration watcher unavailable", "config_watch_failed",
				logging.String("path", s.configPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "configuration edits apply only after SIGHUP or restart"),
				logging.String(logging.FieldErrorHint, "check the configuration directory exists and inotify limits"),
			)
		}
	}
	if s.runOnStart {
		s.Trigger()
	}

	s.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.String("schedule", snap.Schedule.String()),
		logging.Int("sources", len(snap.Pairs)),
	)

	for ctx.Err() == nil {
		select {
		case <-s.reload:
			s.applyReload()
		default:
		}
		s.setState(StateArmed)
		s.logNextRun()

		select {
		case <-ctx.Done():
		case <-s.reload:
			s.applyReload()
		case trigger := <-s.fire:
			s.setState(StateExecuting)
			err := s.runner.Run(ctx, s.snapshot.Load(), trigger)
			if err == nil {
				continue
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				continue
			}
			return fmt.Errorf("assort run: %w", err)
		}
	}

	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
	return nil
}

func (s *Service) setState(state State) { s.state.Store(int32(state)) }

func (s *Service) load() (*Snapshot, error) {
	cfg, err := s.loader()
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(cfg)
}

// arm schedules the daily job, replacing the previous definition if any.
// Sub-second schedule precision is dropped.
func (s *Service) arm(at config.ScheduleTime) error {
	def := gocron.DailyJob(1, gocron.NewAtTimes(
		gocron.NewAtTime(uint(at.Hour()), uint(at.Minute()), uint(at.Second())),
	))
	task := gocron.NewTask(func() { s.queue(history.TriggerSchedule) })

	var (
		job gocron.Job
		err error
	)
	if s.job == nil {
		job, err = s.cron.NewJob(def, task, gocron.WithName(jobName))
	} else {
		job, err = s.cron.Update(s.job.ID(), def, task, gocron.WithName(jobName))
	}
	if err != nil {
		return fmt.Errorf("arm daily job at %s: %w", at, err)
	}
	s.job = job
	return nil
}

func (s *Service) applyReload() {
	s.setState(StateValidating)
	snap, err := s.load()
	if err != nil {
		s.rejectReload(err)
		return
	}
	prev := s.snapshot.Load()
	if prev == nil || prev.Schedule != snap.Schedule {
		if err := s.arm(snap.Schedule); err != nil {
			s.rejectReload(err)
			return
		}
	}
	s.snapshot.Store(snap)
	s.logger.Info("configuration reloaded",
		logging.String(logging.FieldEventType, "config_reloaded"),
		logging.String("schedule", snap.Schedule.String()),
		logging.Int("lookback_days", snap.Depth),
		logging.Int("sources", len(snap.Pairs)),
	)
}

func (s *Service) rejectReload(err error) {
	logging.WarnWithContext(s.logger, "configuration reload rejected", "config_reload_rejected",
		logging.Error(err),
		logging.String(logging.FieldImpact, "the previous configuration stays active"),
		logging.String(logging.FieldErrorHint, "run camsort config validate"),
	)
}

func (s *Service) logNextRun() {
	snap := s.snapshot.Load()
	if s.job == nil || snap == nil {
		return
	}
	s.logger.Debug("waiting for next run",
		logging.String("next_run", nextRun(s.job, snap.Schedule, time.Now().In(s.location)).Format(time.RFC3339)),
	)
}

// nextRun asks the job first and falls back to the schedule itself when the
// job has no upcoming run recorded yet.
func nextRun(job gocron.Job, at config.ScheduleTime, now time.Time) time.Time {
	if job != nil {
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			return next
		}
	}
	return at.Next(now)
}
