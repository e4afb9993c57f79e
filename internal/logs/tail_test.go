package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"camsort/internal/logs"
)

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) add(line string) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *collector) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		lines := c.snapshot()
		if len(lines) >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d lines, have %#v", n, lines)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camsort.log")
	appendTo(t, path, "a\nb\nc\npartial")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("offset = %d, want end of last complete line", offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("Last(missing) = %#v, %d, %v", lines, offset, err)
	}
}

func TestFollowStreamsAppendsAndPointerSwitch(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "camsort-1.log")
	second := filepath.Join(dir, "camsort-2.log")
	pointer := filepath.Join(dir, "camsort.log")
	appendTo(t, first, "start\n")
	if err := os.Symlink(first, pointer); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, offset, err := logs.Last(pointer, 1)
	if err != nil {
		t.Fatalf("Last returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := &collector{}
	done := make(chan error, 1)
	go func() { done <- logs.Follow(ctx, pointer, offset, got.add) }()

	appendTo(t, first, "later\n")
	got.waitFor(t, 1)

	appendTo(t, second, "fresh process\n")
	if err := os.Remove(pointer); err != nil {
		t.Fatalf("remove pointer: %v", err)
	}
	if err := os.Symlink(second, pointer); err != nil {
		t.Fatalf("relink pointer: %v", err)
	}
	lines := got.waitFor(t, 2)
	if lines[0] != "later" || lines[1] != "fresh process" {
		t.Fatalf("unexpected followed lines: %#v", lines)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Follow returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not stop")
	}
}
