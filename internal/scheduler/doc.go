// Package scheduler drives assort runs from a long-lived process.
//
// A Service holds the active configuration as an immutable Snapshot behind an
// atomic pointer. It arms a daily gocron job at the configured time of day,
// watches the configuration file with fsnotify, and runs one transaction per
// firing through a Runner. Reload and stop are independent signals: a reload
// request is a single pending flag consumed before the next wait, and stop is
// context cancellation, honoured between sources.
//
// Executor is the production Runner. It opens one assort transaction per run,
// feeds every source/target pair through it, and records the outcome in the
// run history.
package scheduler
