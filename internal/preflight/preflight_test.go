package preflight

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"camsort/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir, Write)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), Read)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f, Read); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCanReadMissingDirectory(t *testing.T) {
	err := CanRead(filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestCanWriteReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if err := CanRead(dir); err != nil {
		t.Fatalf("expected read access, got %v", err)
	}
	if err := CanWrite(dir); err == nil {
		t.Fatal("expected write check to fail")
	}
}

func TestCheckCreatable(t *testing.T) {
	base := t.TempDir()
	if result := CheckCreatable("nested", filepath.Join(base, "a", "b")); !result.Passed {
		t.Fatalf("expected creatable path to pass: %s", result.Detail)
	}
	if result := CheckCreatable("existing", base); !result.Passed {
		t.Fatalf("expected existing path to pass: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_ReportsMissingSource(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Targets = []config.Target{{Name: "lists", Directory: filepath.Join(base, "lists"), Kind: config.KindManifest}}
	cfg.Sources = []config.Source{
		{Directory: base, Target: "lists"},
		{Directory: filepath.Join(base, "missing"), Target: "lists"},
	}

	results := RunAll(&cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %+v", len(results), results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Source → lists" {
		t.Fatalf("expected only the missing source to fail, got %+v", failed)
	}
}
