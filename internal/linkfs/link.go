package linkfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

var (
	// ErrExists reports that the new name is already taken.
	ErrExists = errors.New("link destination already exists")
	// ErrUnsupported reports that the filesystem cannot link the two paths.
	ErrUnsupported = errors.New("hard links not supported for this path")
)

// LinkError records a failed hard-link attempt.
type LinkError struct {
	Old  string
	New  string
	Kind error
	Err  error
}

func (e *LinkError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("link %s -> %s: %v: %v", e.New, e.Old, e.Kind, e.Err)
	}
	return fmt.Sprintf("link %s -> %s: %v", e.New, e.Old, e.Err)
}

// Unwrap exposes both the classification and the underlying cause.
func (e *LinkError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Err}
	}
	return []error{e.Kind, e.Err}
}

// Link creates newname as a hard link to oldname.
func Link(oldname, newname string) error {
	err := os.Link(oldname, newname)
	if err == nil {
		return nil
	}
	return &LinkError{Old: oldname, New: newname, Kind: classify(err), Err: err}
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrExist), errors.Is(err, unix.EEXIST):
		return ErrExists
	case errors.Is(err, unix.EXDEV),
		errors.Is(err, unix.EPERM),
		errors.Is(err, unix.EOPNOTSUPP),
		errors.Is(err, unix.ENOTSUP),
		errors.Is(err, unix.EMLINK),
		errors.Is(err, unix.ENOSYS):
		return ErrUnsupported
	default:
		return nil
	}
}
