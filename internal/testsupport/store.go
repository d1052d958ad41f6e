package testsupport

import (
	"context"
	"testing"

	"bindery/internal/batch"
	"bindery/internal/config"
)

// MustOpenLedger opens a batch.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *batch.Store {
	t.Helper()

	store, err := batch.Open(cfg)
	if err != nil {
		t.Fatalf("batch.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a pending ledger record for tests using the provided store.
func Enqueue(t testing.TB, store *batch.Store, runID, locator string) *batch.Record {
	t.Helper()

	record, err := store.Enqueue(context.Background(), runID, locator, "", 1)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return record
}
