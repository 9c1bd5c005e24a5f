package publishing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelsmith/internal/publishing"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

type fakeBus struct {
	channel string
	payload any
	err     error
	calls   int
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload any) error {
	f.calls++
	f.channel = channel
	f.payload = payload
	return f.err
}

func uploadedBatch(t *testing.T, store *queue.Store) *queue.Batch {
	t.Helper()
	batch := testsupport.NewBatch(t, store, "Uploaded Batch")
	batch.Status = queue.StatusUploaded
	batch.UploadKey = "jobs/videos/" + batch.VideoID + ".mp4"
	batch.VideoURL = "https://cdn.example.com/" + batch.UploadKey
	batch.EventTimestamp = 1756032000.25
	if err := store.Update(context.Background(), batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return batch
}

func TestExecutePublishesVideoReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Redis.ResultsChannel = "jobs:results"
	store := testsupport.MustOpenStore(t, cfg)
	batch := uploadedBatch(t, store)

	bus := &fakeBus{}
	publisher := publishing.NewPublisher(cfg, store, nil, nil, bus)

	ctx := context.Background()
	if err := publisher.Prepare(ctx, batch); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := publisher.Execute(ctx, batch); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if batch.Status != queue.StatusCompleted {
		t.Fatalf("expected completed status, got %s", batch.Status)
	}
	if bus.calls != 1 || bus.channel != "jobs:results" {
		t.Fatalf("unexpected publishes: %#v", bus)
	}

	event, ok := bus.payload.(publishing.VideoReadyEvent)
	if !ok {
		t.Fatalf("unexpected payload type: %T", bus.payload)
	}
	if event.Type != "video_ready" || event.Source != "video_worker" {
		t.Fatalf("unexpected event header: %#v", event)
	}
	if event.Video.Path != batch.VideoURL || event.Video.Format != "mp4" {
		t.Fatalf("unexpected video info: %#v", event.Video)
	}
	if event.Timestamp != batch.EventTimestamp {
		t.Fatalf("expected carried timestamp %v, got %v", batch.EventTimestamp, event.Timestamp)
	}
}

func TestExecuteFallsBackToIngestChannel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := uploadedBatch(t, store)

	bus := &fakeBus{}
	publisher := publishing.NewPublisher(cfg, store, nil, nil, bus)
	if err := publisher.Execute(context.Background(), batch); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if bus.channel != cfg.Redis.Channel {
		t.Fatalf("expected fallback channel %q, got %q", cfg.Redis.Channel, bus.channel)
	}
}

func TestExecuteValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	batch := testsupport.NewBatch(t, store, "No URL")
	publisher := publishing.NewPublisher(cfg, store, nil, nil, &fakeBus{})
	if err := publisher.Execute(context.Background(), batch); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	uploaded := uploadedBatch(t, store)
	publisher = publishing.NewPublisher(cfg, store, nil, nil, nil)
	if err := publisher.Execute(context.Background(), uploaded); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExecutePropagatesPublishFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := uploadedBatch(t, store)

	bus := &fakeBus{err: errors.New("connection refused")}
	publisher := publishing.NewPublisher(cfg, store, nil, nil, bus)
	err := publisher.Execute(context.Background(), batch)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if batch.Status == queue.StatusCompleted {
		t.Fatal("expected batch not completed after publish failure")
	}
}

func TestNewVideoReadyEventTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 500_000_000, time.UTC)

	event := publishing.NewVideoReadyEvent("https://example.com/v.mp4", 1756032000.25, now)
	if event.Timestamp != 1756032000.25 {
		t.Fatalf("expected carried timestamp, got %v", event.Timestamp)
	}

	// Without a carried timestamp the publish time is used.
	event = publishing.NewVideoReadyEvent("https://example.com/v.mp4", 0, now)
	want := float64(now.UnixMilli()) / 1000
	if event.Timestamp != want {
		t.Fatalf("expected timestamp %v, got %v", want, event.Timestamp)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	publisher := publishing.NewPublisher(cfg, store, nil, nil, &fakeBus{})
	if health := publisher.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy publisher, got %q", health.Detail)
	}

	publisher = publishing.NewPublisher(cfg, store, nil, nil, nil)
	if health := publisher.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy publisher without bus")
	}
}
