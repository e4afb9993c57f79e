// Package logs tails camsort process logs for the CLI.
//
// Last reads the trailing lines of a log with bounded memory. Follow streams
// lines as they are appended; it re-resolves the camsort.log pointer so a
// daemon restart, which starts a new process log, is followed seamlessly.
package logs
