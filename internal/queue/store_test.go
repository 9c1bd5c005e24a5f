package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	batch, err := store.NewBatch(ctx, "Warehouse Operator")
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	if batch.ID == 0 {
		t.Fatal("expected batch ID to be assigned")
	}
	if batch.VideoID == "" {
		t.Fatal("expected video ID to be assigned")
	}
	if batch.Status != queue.StatusCollecting {
		t.Fatalf("expected collecting status, got %s", batch.Status)
	}

	fetched, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Warehouse Operator" {
		t.Fatalf("unexpected fetched batch: %#v", fetched)
	}
}

func TestUpdatePersistsEventMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	batch := testsupport.NewBatch(t, store, "Metadata")
	batch.SourceChannel = "jobs:events"
	batch.EventTimestamp = 1756032000.25
	batch.RenderDetails = `{"images":10}`
	if err := store.Update(ctx, batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.SourceChannel != "jobs:events" {
		t.Fatalf("unexpected source channel: %q", fetched.SourceChannel)
	}
	if fetched.EventTimestamp != 1756032000.25 {
		t.Fatalf("unexpected event timestamp: %v", fetched.EventTimestamp)
	}
	if fetched.RenderDetails != `{"images":10}` {
		t.Fatalf("unexpected render details: %q", fetched.RenderDetails)
	}
}

func TestCurrentCollectingReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	current, err := store.CurrentCollecting(ctx)
	if err != nil {
		t.Fatalf("CurrentCollecting failed: %v", err)
	}
	if current != nil {
		t.Fatalf("expected no collecting batch, got %#v", current)
	}

	first := testsupport.NewBatch(t, store, "First")
	testsupport.NewBatch(t, store, "Second")

	current, err = store.CurrentCollecting(ctx)
	if err != nil {
		t.Fatalf("CurrentCollecting failed: %v", err)
	}
	if current == nil || current.ID != first.ID {
		t.Fatalf("expected oldest collecting batch %d, got %#v", first.ID, current)
	}
}

func TestAddImageBumpsCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	batch := testsupport.NewBatch(t, store, "Batch")

	for i := 0; i < 3; i++ {
		img, err := store.AddImage(ctx, batch.ID, queue.Image{
			Path:      fmt.Sprintf("/tmp/img-%d.jpg", i),
			Format:    "jpeg",
			Width:     1080,
			Height:    1920,
			SizeBytes: 2048,
		})
		if err != nil {
			t.Fatalf("AddImage failed: %v", err)
		}
		if img.ID == 0 || img.BatchID != batch.ID {
			t.Fatalf("unexpected stored image: %#v", img)
		}
	}

	updated, err := store.GetByID(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.ImageCount != 3 {
		t.Fatalf("expected image count 3, got %d", updated.ImageCount)
	}

	images, err := store.ImagesForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ImagesForBatch failed: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	if images[0].Path != "/tmp/img-0.jpg" {
		t.Fatalf("unexpected first image path: %s", images[0].Path)
	}
}

func TestRemoveImages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	batch := testsupport.NewBatch(t, store, "Batch")
	if _, err := store.AddImage(ctx, batch.ID, queue.Image{Path: "/tmp/a.png", Format: "png", Width: 10, Height: 10, SizeBytes: 100}); err != nil {
		t.Fatalf("AddImage failed: %v", err)
	}

	removed, err := store.RemoveImages(ctx, batch.ID)
	if err != nil {
		t.Fatalf("RemoveImages failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 image removed, got %d", removed)
	}

	images, err := store.ImagesForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ImagesForBatch failed: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected no images, got %d", len(images))
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"rendering", queue.StatusRendering, queue.StatusReady},
		{"uploading", queue.StatusUploading, queue.StatusRendered},
		{"publishing", queue.StatusPublishing, queue.StatusUploaded},
	}
	var ids []int64
	for _, tc := range cases {
		batch := testsupport.NewBatch(t, store, fmt.Sprintf("Batch-%s", tc.name))
		batch.Status = tc.initialStatus
		batch.ProgressStage = tc.name
		if err := store.Update(ctx, batch); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, batch.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d batches reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewBatch(t, store, "Stale")
	stale.Status = queue.StatusRendering
	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fresh := testsupport.NewBatch(t, store, "Fresh")
	fresh.Status = queue.StatusRendering
	now := time.Now().UTC()
	fresh.LastHeartbeat = &now
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 batch reclaimed, got %d", count)
	}

	updated, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusReady {
		t.Fatalf("expected ready status, got %s", updated.Status)
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusRendering {
		t.Fatalf("expected fresh batch untouched, got %s", untouched.Status)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewBatch(t, store, "Batch A")
	b := testsupport.NewBatch(t, store, "Batch B")
	b.Status = queue.StatusReady
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(all))
	}

	ready, err := store.List(ctx, queue.StatusReady)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ready) != 1 || ready[0].Title != "Batch B" {
		t.Fatalf("unexpected ready batches: %#v", ready)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewBatch(t, store, "First")
	first.Status = queue.StatusReady
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := testsupport.NewBatch(t, store, "Second")
	second.Status = queue.StatusReady
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusReady)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest ready batch %d, got %#v", first.ID, next)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	failed := testsupport.NewBatch(t, store, "Failed")
	failed.SetFailed("render exploded")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, failed.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 batch retried, got %d", count)
	}

	updated, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusReady {
		t.Fatalf("expected ready status, got %s", updated.Status)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", updated.ErrorMessage)
	}
}

func TestRetryFailedReturnsToSettledStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Failed during upload: the rendered file exists but the images are
	// gone, so retry must resume from rendered, not re-render.
	uploadFailed := testsupport.NewBatch(t, store, "Upload Failed")
	uploadFailed.VideoFile = "/videos/slideshow.mp4"
	uploadFailed.SetFailed("bucket unreachable")
	if err := store.Update(ctx, uploadFailed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Failed during publish: the video is already uploaded.
	publishFailed := testsupport.NewBatch(t, store, "Publish Failed")
	publishFailed.VideoFile = "/videos/slideshow2.mp4"
	publishFailed.VideoURL = "https://cdn.example.com/jobs/videos/a.mp4"
	publishFailed.SetFailed("redis unreachable")
	if err := store.Update(ctx, publishFailed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 batches retried, got %d", count)
	}

	afterUpload, err := store.GetByID(ctx, uploadFailed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if afterUpload.Status != queue.StatusRendered {
		t.Fatalf("expected rendered status, got %s", afterUpload.Status)
	}

	afterPublish, err := store.GetByID(ctx, publishFailed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if afterPublish.Status != queue.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", afterPublish.Status)
	}
}

func TestHealthAggregatesCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewBatch(t, store, "Collecting")
	ready := testsupport.NewBatch(t, store, "Ready")
	ready.Status = queue.StatusReady
	if err := store.Update(ctx, ready); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rendering := testsupport.NewBatch(t, store, "Rendering")
	rendering.Status = queue.StatusRendering
	if err := store.Update(ctx, rendering); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	done := testsupport.NewBatch(t, store, "Done")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 4 || health.Collecting != 1 || health.Ready != 1 || health.Processing != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestClearVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.NewBatch(t, store, "Done")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewBatch(t, store, "Failed")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewBatch(t, store, "Collecting")

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 completed cleared, got %d", cleared)
	}

	cleared, err = store.ClearFailed(ctx)
	if err != nil {
		t.Fatalf("ClearFailed failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 failed cleared, got %d", cleared)
	}

	cleared, err = store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 batch cleared, got %d", cleared)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Rendering "); !ok || status != queue.StatusRendering {
		t.Fatalf("unexpected parse result: %s %v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected parse failure for unknown status")
	}
}
