package daemon_test

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/daemon"
	"reelsmith/internal/queue"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Batch) error { return nil }
func (noopStage) Execute(context.Context, *queue.Batch) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil)
	mgr.ConfigureStages(workflow.StageSet{Renderer: noopStage{}})
	d, err := daemon.New(cfg, store, nil, mgr, nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonQueueOperations(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	batch := testsupport.NewBatch(t, store, "Queued Batch")
	batch.Status = queue.StatusFailed
	batch.ErrorMessage = "render crashed"
	if err := store.Update(ctx, batch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	batches, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(batches))
	}

	retried, err := d.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected one retried batch, got %d", retried)
	}

	described, images, err := d.DescribeBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("DescribeBatch: %v", err)
	}
	if described.Status != queue.StatusReady {
		t.Fatalf("expected ready after retry, got %s", described.Status)
	}
	if len(images) != 0 {
		t.Fatalf("expected no images, got %d", len(images))
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 1 {
		t.Fatalf("expected one batch in health summary, got %d", health.Total)
	}

	removed, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed batch, got %d", removed)
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	d, _ := newDaemon(t)
	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent {
		t.Fatal("expected no notification without topic")
	}
	if detail == "" {
		t.Fatal("expected detail message")
	}
}
