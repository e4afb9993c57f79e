package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Access is the permission a check requires.
type Access uint32

const (
	Read  Access = unix.R_OK | unix.X_OK
	Write Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) String() string {
	if a == Write {
		return "read/write"
	}
	return "read"
}

// CanRead returns nil when path is a directory the process may list.
func CanRead(path string) error {
	return checkDir(path, Read)
}

// CanWrite returns nil when path is a directory the process may create files in.
func CanWrite(path string) error {
	return checkDir(path, Write)
}

func checkDir(path string, mode Access) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if err := unix.Access(path, uint32(mode)); err != nil {
		return fmt.Errorf("insufficient permissions (%s): %w", mode, err)
	}
	return nil
}

// CheckDirectoryAccess verifies that the directory exists and grants mode.
func CheckDirectoryAccess(name, path string, mode Access) Result {
	if err := checkDir(path, mode); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, mode)}
}

// CheckCreatable verifies that path is writable, or that it can be created
// because its nearest existing ancestor is writable.
func CheckCreatable(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path, Write)
	}
	parent := filepath.Dir(path)
	for parent != filepath.Dir(parent) {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		parent = filepath.Dir(parent)
	}
	if err := checkDir(parent, Write); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}
