// Package daemonrun hosts the camsort daemon process: it installs signal
// handlers, opens the process log and run history, holds the pid file, and
// keeps the daemon alive until it is told to stop.
package daemonrun
