// Package daemon coordinates the long-running camsort process.
//
// It wires configuration, the run history store and the scheduler service
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon closes history rows left open by a crashed process,
// forwards reload and run-now requests to the scheduler, and reports status
// for the CLI.
//
// Keep orchestration logic here: assorting lives in internal/assort and the
// run loop in internal/scheduler, while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
