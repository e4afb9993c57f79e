package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// CurrentLogName is the stable name that always refers to the newest process log.
const CurrentLogName = "camsort.log"

// EnsureCurrentLogPointer points <logDir>/camsort.log at target, preferring a
// symlink and falling back to a hard link.
func EnsureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, CurrentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
