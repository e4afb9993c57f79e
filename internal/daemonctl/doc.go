// Package daemonctl controls a running camsort daemon from another process
// through its lock file, pid file and signals.
package daemonctl
