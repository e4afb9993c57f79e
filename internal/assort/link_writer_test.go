package assort_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"camsort/internal/assort"
	"camsort/internal/testsupport"
)

func TestLinkTargetMirrorsTreeAndIsIdempotent(t *testing.T) {
	src := t.TempDir()
	mirror := t.TempDir()
	yesterday := clockNow.AddDate(0, 0, -1)
	testsupport.WriteRecording(t, filepath.Join(src, "a.mp4"), 10, yesterday)
	testsupport.WriteRecording(t, filepath.Join(src, "night", "b.mp4"), 20, yesterday)
	testsupport.WriteRecording(t, filepath.Join(src, "c.mp4"), 30, clockNow)
	target := assort.Target{Name: "mirror", Dir: mirror, Kind: assort.KindLink}

	run := func() assort.Report {
		t.Helper()
		tx := begin(t, "", 1)
		report, err := tx.Assort(context.Background(), timestampSource(src), target)
		if err != nil {
			t.Fatalf("Assort returned error: %v", err)
		}
		if err := tx.End(); err != nil {
			t.Fatalf("End returned error: %v", err)
		}
		return report
	}

	first := run()
	if len(first.Buckets) != 1 {
		t.Fatalf("expected one bucket, got %+v", first.Buckets)
	}
	if b := first.Buckets[0]; b.Linked != 2 || b.Existing != 0 || b.Failed != 0 || b.Bytes != 30 {
		t.Fatalf("unexpected first run bucket %+v", b)
	}

	dayDir := filepath.Join(mirror, assort.DayName(yesterday))
	for _, rel := range []string{"a.mp4", filepath.Join("night", "b.mp4")} {
		linked, err := os.Stat(filepath.Join(dayDir, rel))
		if err != nil {
			t.Fatalf("expected link for %s: %v", rel, err)
		}
		original, err := os.Stat(filepath.Join(src, rel))
		if err != nil {
			t.Fatal(err)
		}
		if !os.SameFile(linked, original) {
			t.Fatalf("%s is not a hard link to the recording", rel)
		}
	}
	if exists(filepath.Join(dayDir, "c.mp4")) {
		t.Fatal("today's recording must not be linked")
	}

	second := run()
	if b := second.Buckets[0]; b.Linked != 0 || b.Existing != 2 || b.Failed != 0 {
		t.Fatalf("second run should only find existing links, got %+v", b)
	}
}

func TestLinkTargetNestedInSourceIsNotEnumerated(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "out")
	yesterday := clockNow.AddDate(0, 0, -1)
	testsupport.WriteRecording(t, filepath.Join(src, "a.mp4"), 1, yesterday)
	target := assort.Target{Name: "out", Dir: out, Kind: assort.KindLink}

	for i := range 2 {
		tx := begin(t, "", 1)
		report, err := tx.Assort(context.Background(), timestampSource(src), target)
		if err != nil {
			t.Fatalf("run %d: Assort returned error: %v", i, err)
		}
		tx.Abort()
		if report.Enumerated != 1 {
			t.Fatalf("run %d: expected only the recording to be enumerated, got %d", i, report.Enumerated)
		}
	}
}

func TestLinkTargetSkipsUnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	src := t.TempDir()
	mirror := t.TempDir()
	yesterday := clockNow.AddDate(0, 0, -1)
	testsupport.WriteRecording(t, filepath.Join(src, "a.mp4"), 1, yesterday)
	testsupport.WriteRecording(t, filepath.Join(src, "locked", "b.mp4"), 1, yesterday)
	locked := filepath.Join(src, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	tx := begin(t, "", 1)
	defer tx.Abort()
	report, err := tx.Assort(context.Background(), timestampSource(src), assort.Target{Name: "mirror", Dir: mirror, Kind: assort.KindLink})
	if err != nil {
		t.Fatalf("Assort returned error: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != locked {
		t.Fatalf("expected locked subtree to be reported, got %v", report.Skipped)
	}
	if report.Buckets[0].Linked != 1 {
		t.Fatalf("expected the readable recording to be linked, got %+v", report.Buckets[0])
	}
}

func TestLinkTargetAcceptsRelativeSourceDir(t *testing.T) {
	base := t.TempDir()
	yesterday := clockNow.AddDate(0, 0, -1)
	testsupport.WriteRecording(t, filepath.Join(base, "src", "night", "a.mp4"), 10, yesterday)
	t.Chdir(base)

	tx := begin(t, "", 1)
	report, err := tx.Assort(context.Background(), timestampSource("src"), assort.Target{Name: "mirror", Dir: "out", Kind: assort.KindLink})
	if err != nil {
		t.Fatalf("Assort returned error: %v", err)
	}
	if err := tx.End(); err != nil {
		t.Fatalf("End returned error: %v", err)
	}
	if len(report.Buckets) != 1 || report.Buckets[0].Linked != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !exists(filepath.Join(base, "out", assort.DayName(yesterday), "night", "a.mp4")) {
		t.Fatal("relative source was not mirrored into the link target")
	}
}

func TestLinkTargetThroughLinkedSourceRoot(t *testing.T) {
	base := t.TempDir()
	disk := filepath.Join(base, "disk1", "cam1")
	yesterday := clockNow.AddDate(0, 0, -1)
	testsupport.WriteRecording(t, filepath.Join(disk, "a.mp4"), 10, yesterday)
	src := filepath.Join(base, "cam1")
	if err := os.Symlink(disk, src); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	mirror := t.TempDir()

	tx := begin(t, "", 1)
	defer tx.Abort()
	report, err := tx.Assort(context.Background(), timestampSource(src), assort.Target{Name: "mirror", Dir: mirror, Kind: assort.KindLink})
	if err != nil {
		t.Fatalf("Assort returned error: %v", err)
	}
	if len(report.Buckets) != 1 || report.Buckets[0].Linked != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !exists(filepath.Join(mirror, assort.DayName(yesterday), "a.mp4")) {
		t.Fatal("recording below a linked root was not mirrored")
	}
}
