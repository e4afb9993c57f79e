package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func sameFile(t *testing.T, a, b string) bool {
	t.Helper()
	ai, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}
	bi, err := os.Stat(b)
	if err != nil {
		t.Fatal(err)
	}
	return os.SameFile(ai, bi)
}

func TestReplaceLinkSwapsTarget(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "2024-01-01.txt")
	second := filepath.Join(dir, "2024-01-02.txt")
	latest := filepath.Join(dir, "latest.txt")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := ReplaceLink(first, latest); err != nil {
		t.Fatalf("ReplaceLink first: %v", err)
	}
	if !sameFile(t, first, latest) {
		t.Fatal("latest should link to the first manifest")
	}
	if err := ReplaceLink(second, latest); err != nil {
		t.Fatalf("ReplaceLink second: %v", err)
	}
	if !sameFile(t, second, latest) {
		t.Fatal("latest should link to the second manifest")
	}
	// Relinking to the same inode must not leave the temporary name behind.
	if err := ReplaceLink(second, latest); err != nil {
		t.Fatalf("ReplaceLink again: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestCopyFileVerifiedReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	if err := os.WriteFile(src, []byte("hello world"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	if sameFile(t, src, dst) {
		t.Fatal("copy must not share the source inode")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("temporary file left behind: %d entries", len(entries))
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(dst, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(filepath.Join(dir, "missing.txt"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "keep" {
		t.Fatalf("destination changed: %q, %v", got, err)
	}
}
