package batch

import (
	"context"
	"path/filepath"
	"testing"

	"bindery/internal/config"
	"bindery/internal/repo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.PackageDir = filepath.Join(base, "packages")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("open ledger store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func enqueue(t *testing.T, store *Store, runID, locator string) *Record {
	t.Helper()
	record, err := store.Enqueue(context.Background(), runID, locator, "deadbeef", 7)
	if err != nil {
		t.Fatalf("enqueue %s: %v", locator, err)
	}
	if record == nil {
		t.Fatalf("enqueue %s returned no record", locator)
	}
	return record
}

func TestEnqueueCreatesPendingRecord(t *testing.T) {
	store := openTestStore(t)
	record := enqueue(t, store, "run-1", "/packages/a.zip")

	if record.Status != StatusPending {
		t.Fatalf("status = %s", record.Status)
	}
	if record.Attempts != 0 {
		t.Fatalf("attempts = %d", record.Attempts)
	}
	if record.Checksum != "deadbeef" || record.CollectionID != 7 || record.RunID != "run-1" {
		t.Fatalf("record = %+v", record)
	}
	if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}
	if record.Terminal() {
		t.Fatal("pending record must not be terminal")
	}
}

func TestMarkSucceededClearsFailureFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	record := enqueue(t, store, "run-1", "/packages/a.zip")

	if err := store.MarkFailed(ctx, record.ID, repo.FailureConnectivity, "connection refused"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkSucceeded(ctx, record.ID, "https://repo.example.edu/items/5", `{"id":5}`); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSucceeded || !got.Terminal() {
		t.Fatalf("status = %s", got.Status)
	}
	if got.FailureKind != "" || got.ErrorMessage != "" {
		t.Fatalf("failure fields not cleared: %+v", got)
	}
	if got.Location != "https://repo.example.edu/items/5" || got.ResponseJSON != `{"id":5}` {
		t.Fatalf("result fields = %+v", got)
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d", got.Attempts)
	}
}

func TestMarkRetryingOnlyMovesFailedRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	record := enqueue(t, store, "run-1", "/packages/a.zip")

	if err := store.MarkRetrying(ctx, record.ID); err == nil {
		t.Fatal("expected error retrying a pending record")
	}

	if err := store.MarkFailed(ctx, record.ID, repo.FailureRejected, "repository returned 422"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkRetrying(ctx, record.ID); err != nil {
		t.Fatalf("mark retrying: %v", err)
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("status = %s", got.Status)
	}
	// The prior failure stays on the record until the retry resolves it.
	if got.FailureKind != repo.FailureRejected {
		t.Fatalf("failure kind = %s", got.FailureKind)
	}
}

func TestFailedByKindFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	net := enqueue(t, store, "run-1", "/packages/net.zip")
	rej := enqueue(t, store, "run-1", "/packages/rej.zip")
	ok := enqueue(t, store, "run-1", "/packages/ok.zip")

	if err := store.MarkFailed(ctx, net.ID, repo.FailureConnectivity, "timeout"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkFailed(ctx, rej.ID, repo.FailureRejected, "422"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkSucceeded(ctx, ok.ID, "", ""); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	connectivity, err := store.FailedByKind(ctx, repo.FailureConnectivity)
	if err != nil {
		t.Fatalf("failed by kind: %v", err)
	}
	if len(connectivity) != 1 || connectivity[0].Locator != "/packages/net.zip" {
		t.Fatalf("connectivity = %+v", connectivity)
	}

	all, err := store.FailedByKind(ctx, "")
	if err != nil {
		t.Fatalf("failed by kind: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all failed = %d", len(all))
	}
}

func TestListAndListRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := enqueue(t, store, "run-1", "/packages/a.zip")
	enqueue(t, store, "run-1", "/packages/b.zip")
	enqueue(t, store, "run-2", "/packages/c.zip")

	if err := store.MarkSucceeded(ctx, a.ID, "", ""); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Locator != "/packages/a.zip" {
		t.Fatalf("list = %+v", all)
	}

	pending, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d", len(pending))
	}

	run1, err := store.ListRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("list run: %v", err)
	}
	if len(run1) != 2 {
		t.Fatalf("run-1 = %d", len(run1))
	}
}

func TestFindPendingAndLatest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := enqueue(t, store, "run-1", "/packages/a.zip")
	second := enqueue(t, store, "run-2", "/packages/a.zip")

	pending, err := store.FindPending(ctx, "/packages/a.zip")
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if pending == nil || pending.ID != first.ID {
		t.Fatalf("pending = %+v", pending)
	}

	latest, err := store.FindLatest(ctx, "/packages/a.zip")
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("latest = %+v", latest)
	}

	missing, err := store.FindLatest(ctx, "/packages/never.zip")
	if err != nil {
		t.Fatalf("find latest missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unseen locator, got %+v", missing)
	}
}

func TestStatsSummaryAndClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := enqueue(t, store, "run-1", "/packages/a.zip")
	b := enqueue(t, store, "run-1", "/packages/b.zip")
	enqueue(t, store, "run-1", "/packages/c.zip")

	if err := store.MarkSucceeded(ctx, a.ID, "", ""); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	if err := store.MarkFailed(ctx, b.ID, repo.FailureLocalIO, "missing"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := LedgerSummary{Total: 3, Pending: 1, Succeeded: 1, Failed: 1}
	if summary != want {
		t.Fatalf("summary = %+v", summary)
	}

	removed, err := store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("clear failed removed %d", removed)
	}

	removed, err = store.ClearSucceeded(ctx)
	if err != nil {
		t.Fatalf("clear succeeded: %v", err)
	}
	if removed != 1 {
		t.Fatalf("clear succeeded removed %d", removed)
	}

	removed, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("clear removed %d", removed)
	}

	summary, err = store.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("ledger not empty: %+v", summary)
	}
}

func TestRemoveByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	record := enqueue(t, store, "run-1", "/packages/a.zip")

	removed, err := store.Remove(ctx, record.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	removed, err = store.Remove(ctx, record.ID)
	if err != nil {
		t.Fatalf("remove again: %v", err)
	}
	if removed {
		t.Fatal("second removal should be a no-op")
	}

	got, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("record survived removal: %+v", got)
	}
}
