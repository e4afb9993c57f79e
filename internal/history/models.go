package history

import "time"

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
)

// Trigger records why a run started.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Run is one assort transaction.
type Run struct {
	ID           string
	Trigger      Trigger
	Status       Status
	LookbackDays int
	StartedAt    time.Time
	FinishedAt   time.Time
	ErrorMessage string
}

// Duration is zero while the run is still open.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SourceResult is the outcome of one source within a run.
type SourceResult struct {
	Source       string
	Target       string
	Kind         string
	Unavailable  bool
	Enumerated   int
	Matched      int
	Bytes        int64
	SkippedDirs  int
	LinkFailures int
	ErrorMessage string
}
