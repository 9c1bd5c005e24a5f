package testsupport

import (
	"context"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBatch creates a new collecting batch for tests using the provided store.
func NewBatch(t testing.TB, store *queue.Store, title string) *queue.Batch {
	t.Helper()

	batch, err := store.NewBatch(context.Background(), title)
	if err != nil {
		t.Fatalf("store.NewBatch: %v", err)
	}
	return batch
}
