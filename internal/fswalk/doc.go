// Package fswalk enumerates the regular files below a directory tree.
//
// Walk returns a lazy, restartable sequence: each range over it re-reads the
// tree. Directories that cannot be opened are reported as an ErrAccessDenied
// value in the sequence and skipped, so callers decide whether to log and
// continue. Exclusion paths prune whole subtrees, which keeps output
// directories nested inside a source from being scanned. A root that is a
// symbolic link is walked through; links below the root are neither followed
// nor reported.
package fswalk
