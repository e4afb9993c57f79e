package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"camsort/internal/history"
	"camsort/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	return testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	started := time.Date(2024, 3, 15, 1, 30, 0, 0, time.UTC)
	id := uuid.NewString()

	if err := store.StartRun(ctx, history.Run{ID: id, Trigger: history.TriggerSchedule, LookbackDays: 2, StartedAt: started}); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	results := []history.SourceResult{
		{Source: "/dvr/cam1", Target: "lists", Kind: "manifest", Enumerated: 10, Matched: 4, Bytes: 4096},
		{Source: "/dvr/cam2", Target: "mirror", Kind: "link", Unavailable: true},
		{Source: "/dvr/cam3", Target: "mirror", Kind: "link", Matched: 2, LinkFailures: 1, SkippedDirs: 1, ErrorMessage: "boom"},
	}
	for _, r := range results {
		if err := store.RecordSource(ctx, id, r); err != nil {
			t.Fatalf("RecordSource returned error: %v", err)
		}
	}
	if err := store.FinishRun(ctx, id, history.StatusCompleted, started.Add(3*time.Second), ""); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if run.Status != history.StatusCompleted || run.Trigger != history.TriggerSchedule || run.LookbackDays != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Duration() != 3*time.Second {
		t.Fatalf("unexpected duration %v", run.Duration())
	}

	got, err := store.Sources(ctx, id)
	if err != nil {
		t.Fatalf("Sources returned error: %v", err)
	}
	if len(got) != len(results) {
		t.Fatalf("expected %d sources, got %d", len(results), len(got))
	}
	for i := range results {
		if got[i] != results[i] {
			t.Fatalf("source %d = %+v, want %+v", i, got[i], results[i])
		}
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 3 {
		id := uuid.NewString()
		ids = append(ids, id)
		// Sub-second offsets exercise text ordering of timestamps.
		started := base.Add(time.Duration(i)*time.Second + time.Duration(i)*100*time.Millisecond)
		if err := store.StartRun(ctx, history.Run{ID: id, Trigger: history.TriggerManual, LookbackDays: 1, StartedAt: started}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Status != history.StatusRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("expected open run, got %+v", runs[0])
	}
}

func TestMarkInterruptedAndPrune(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	old := uuid.NewString()
	recent := uuid.NewString()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, history.Run{ID: old, Trigger: history.TriggerSchedule, LookbackDays: 1, StartedAt: now.AddDate(0, -2, 0)}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordSource(ctx, old, history.SourceResult{Source: "a", Target: "t", Kind: "manifest"}); err != nil {
		t.Fatal(err)
	}
	if err := store.StartRun(ctx, history.Run{ID: recent, Trigger: history.TriggerSchedule, LookbackDays: 1, StartedAt: now}); err != nil {
		t.Fatal(err)
	}

	n, err := store.MarkInterrupted(ctx, now)
	if err != nil || n != 2 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	run, err := store.Get(ctx, recent)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != history.StatusAborted || run.ErrorMessage == "" {
		t.Fatalf("expected aborted run, got %+v", run)
	}

	removed, err := store.Prune(ctx, now.AddDate(0, -1, 0))
	if err != nil || removed != 1 {
		t.Fatalf("Prune = %d, %v", removed, err)
	}
	if _, err := store.Get(ctx, old); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected pruned run to be gone, got %v", err)
	}
	sources, err := store.Sources(ctx, old)
	if err != nil || len(sources) != 0 {
		t.Fatalf("expected cascade delete of sources, got %v, %v", sources, err)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := openStore(t)
	err := store.FinishRun(context.Background(), "missing", history.StatusFailed, time.Now(), "x")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.StartRun(ctx, history.Run{ID: "r1", Trigger: history.TriggerManual, LookbackDays: 1, StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "r1"); err != nil {
		t.Fatalf("expected run to survive reopen: %v", err)
	}
}
