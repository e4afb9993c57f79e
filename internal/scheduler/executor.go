package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"camsort/internal/assort"
	"camsort/internal/history"
	"camsort/internal/logging"
)

// Runner executes one assort run for a snapshot.
type Runner interface {
	Run(ctx context.Context, snap *Snapshot, trigger history.Trigger) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, snap *Snapshot, trigger history.Trigger) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, snap *Snapshot, trigger history.Trigger) error {
	return f(ctx, snap, trigger)
}

// Recorder persists run outcomes. *history.Store satisfies it.
type Recorder interface {
	StartRun(ctx context.Context, run history.Run) error
	RecordSource(ctx context.Context, runID string, result history.SourceResult) error
	FinishRun(ctx context.Context, runID string, status history.Status, finishedAt time.Time, errMsg string) error
}

// Executor is the production Runner.
type Executor struct {
	base     *slog.Logger
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRecorder persists each run. Recording failures are logged and never
// fail the run.
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *Executor) { e.recorder = r }
}

// WithExecutorClock overrides the clock used for "today" and run timestamps.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor builds an Executor.
func NewExecutor(logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Executor{
		base:   logger,
		logger: logging.NewComponentLogger(logger, "runner"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summary totals one run.
type Summary struct {
	RunID       string
	Sources     int
	Unavailable int
	Matched     int
	Bytes       int64
	Skipped     int
	Failures    int
	Reports     []assort.Report
}

// Run drives one transaction across every pair in snap. A cancelled ctx is
// honoured between sources: the transaction is ended normally and the
// context error is returned. Any other error aborts the transaction.
func (e *Executor) Run(ctx context.Context, snap *Snapshot, trigger history.Trigger) error {
	_, err := e.Execute(ctx, snap, trigger)
	return err
}

// Execute is Run that also returns the per-source reports.
func (e *Executor) Execute(ctx context.Context, snap *Snapshot, trigger history.Trigger) (Summary, error) {
	summary := Summary{RunID: e.newID()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, e.logger)
	started := e.now()

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("trigger", string(trigger)),
		logging.Int("lookback_days", snap.Depth),
		logging.Int("sources", len(snap.Pairs)),
	)
	e.record(logger, "start run", func(r Recorder) error {
		return r.StartRun(context.WithoutCancel(ctx), history.Run{
			ID:           summary.RunID,
			Trigger:      trigger,
			LookbackDays: snap.Depth,
			StartedAt:    started,
		})
	})

	opts := append(snap.TransactionOptions(), assort.WithLogger(e.base), assort.WithClock(e.now))
	tx, err := assort.BeginTransaction(snap.ManifestDir, snap.Depth, opts...)
	if err != nil {
		err = fmt.Errorf("begin transaction: %w", err)
		e.finish(ctx, logger, summary, started, history.StatusFailed, err)
		return summary, err
	}

	for _, pair := range snap.Pairs {
		if ctx.Err() != nil {
			break
		}
		report, err := tx.Assort(ctx, pair.Source, pair.Target)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		summary.add(report)
		e.record(logger, "record source", func(r Recorder) error {
			return r.RecordSource(context.WithoutCancel(ctx), summary.RunID, sourceResult(report, err))
		})
		if err != nil {
			tx.Abort()
			err = fmt.Errorf("source %s: %w", pair.Source.Label(), err)
			e.finish(ctx, logger, summary, started, history.StatusFailed, err)
			return summary, err
		}
	}

	if err := tx.End(); err != nil {
		err = fmt.Errorf("end transaction: %w", err)
		e.finish(ctx, logger, summary, started, history.StatusFailed, err)
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		e.finish(ctx, logger, summary, started, history.StatusAborted, err)
		return summary, err
	}
	e.finish(ctx, logger, summary, started, history.StatusCompleted, nil)
	return summary, nil
}

func (s *Summary) add(r assort.Report) {
	s.Reports = append(s.Reports, r)
	s.Sources++
	if r.Unavailable {
		s.Unavailable++
	}
	s.Matched += r.Matched()
	s.Bytes += r.Bytes()
	s.Skipped += len(r.Skipped)
	s.Failures += r.LinkFailures()
}

func (e *Executor) finish(ctx context.Context, logger *slog.Logger, summary Summary, started time.Time, status history.Status, runErr error) {
	finished := e.now()
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	e.record(logger, "finish run", func(r Recorder) error {
		return r.FinishRun(context.WithoutCancel(ctx), summary.RunID, status, finished, errMsg)
	})
	if status == history.StatusFailed {
		logging.ErrorWithContext(logger, "run failed", "unexpected_error",
			logging.Error(runErr),
			logging.Int("sources", summary.Sources),
			logging.Duration("duration", finished.Sub(started)),
			logging.String(logging.FieldErrorHint, "inspect the manifest and target directories; the next run rewrites the window"),
		)
		return
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.String("status", string(status)),
		logging.Int("sources", summary.Sources),
		logging.Int("unavailable", summary.Unavailable),
		logging.Int("matched", summary.Matched),
		logging.Bytes("bytes", summary.Bytes),
		logging.Int("skipped_dirs", summary.Skipped),
		logging.Int("link_failures", summary.Failures),
		logging.Duration("duration", finished.Sub(started)),
	)
}

func (e *Executor) record(logger *slog.Logger, what string, fn func(Recorder) error) {
	if e.recorder == nil {
		return
	}
	if err := fn(e.recorder); err != nil {
		logging.WarnWithContext(logger, "run history not updated", "history_write_failed",
			logging.String("operation", what),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the run is not listed by camsort history"),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		)
	}
}

func sourceResult(r assort.Report, err error) history.SourceResult {
	res := history.SourceResult{
		Source:       r.Source,
		Target:       r.Target,
		Kind:         r.Kind.String(),
		Unavailable:  r.Unavailable,
		Enumerated:   r.Enumerated,
		Matched:      r.Matched(),
		Bytes:        r.Bytes(),
		SkippedDirs:  len(r.Skipped),
		LinkFailures: r.LinkFailures(),
	}
	if err != nil {
		res.ErrorMessage = err.Error()
	}
	return res
}
