// Package fileutil replaces files in place without leaving a window where the
// destination is missing.
package fileutil
