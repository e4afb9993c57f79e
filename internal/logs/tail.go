package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval bounds how long Follow sleeps when no change event arrives.
const pollInterval = time.Second

// Last returns up to limit trailing lines of path and the offset just past
// the last complete line. A missing file yields no lines and offset 0.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	} else if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}

	if limit <= 0 {
		_, offset, err := readLines(file, 0, nil)
		return nil, offset, err
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	_, offset, err := readLines(file, 0, func(line string) {
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow calls emit for every complete line appended to path after offset
// until ctx is done. When path is a symlink that starts pointing at another
// file, following restarts at the top of the new file; a file that shrinks
// is re-read from the start. ctx's error is returned on cancellation.
func Follow(ctx context.Context, path string, offset int64, emit func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	current, _ := filepath.EvalSymlinks(path)
	for {
		resolved, err := filepath.EvalSymlinks(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			resolved = ""
		case err != nil:
			return fmt.Errorf("resolve log path: %w", err)
		}
		if resolved != current {
			current, offset = resolved, 0
		}
		if current != "" {
			offset, err = readFrom(current, offset, emit)
			if err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				return fmt.Errorf("watch log: %w", err)
			}
		case <-watcher.Events:
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	_, next, err := readLines(file, offset, emit)
	return next, err
}

// readLines reads complete lines from offset. A trailing fragment without a
// newline is left for the next call; the returned offset points at it.
func readLines(file *os.File, offset int64, emit func(string)) (int, int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	n := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, offset, nil
			}
			return n, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		n++
		if emit != nil {
			emit(strings.TrimRight(line, "\r\n"))
		}
	}
}
