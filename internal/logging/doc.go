// Package logging assembles structured slog loggers and formatting helpers used
// across camsort.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so assort code can tag log lines
// with the run, source and target being processed. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys and routing.
package logging
