package uploading_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/r2"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/uploading"
)

type fakeUploader struct {
	result r2.UploadResult
	err    error
	calls  int
	path   string
	id     string
}

func (f *fakeUploader) UploadVideo(_ context.Context, localPath, videoID string) (r2.UploadResult, error) {
	f.calls++
	f.path = localPath
	f.id = videoID
	if f.err != nil {
		return r2.UploadResult{}, f.err
	}
	return f.result, nil
}

func renderedBatch(t *testing.T, store *queue.Store, videoDir string) *queue.Batch {
	t.Helper()
	ctx := context.Background()
	batch := testsupport.NewBatch(t, store, "Rendered Batch")
	batch.Status = queue.StatusRendered
	batch.VideoFile = filepath.Join(videoDir, batch.VideoID+".mp4")
	if err := os.WriteFile(batch.VideoFile, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := store.Update(ctx, batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return batch
}

func TestExecuteUploadsAndRemovesLocalFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("videos"))
	store := testsupport.MustOpenStore(t, cfg)
	batch := renderedBatch(t, store, cfg.Paths.VideoDir)

	fake := &fakeUploader{result: r2.UploadResult{
		Key:       "jobs/videos/" + batch.VideoID + ".mp4",
		PublicURL: "https://cdn.example.com/jobs/videos/" + batch.VideoID + ".mp4",
	}}
	uploader := uploading.NewUploaderWithClient(cfg, store, nil, nil, fake)

	ctx := context.Background()
	if err := uploader.Prepare(ctx, batch); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := uploader.Execute(ctx, batch); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if batch.Status != queue.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", batch.Status)
	}
	if batch.UploadKey != fake.result.Key {
		t.Fatalf("unexpected upload key: %q", batch.UploadKey)
	}
	if batch.VideoURL != fake.result.PublicURL {
		t.Fatalf("unexpected video url: %q", batch.VideoURL)
	}
	if fake.calls != 1 || fake.id != batch.VideoID {
		t.Fatalf("unexpected uploader calls: %#v", fake)
	}
	if _, err := os.Stat(fake.path); !os.IsNotExist(err) {
		t.Fatal("expected local video removed after upload")
	}
}

func TestExecuteRequiresVideoFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("videos"))
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "No Video")

	uploader := uploading.NewUploaderWithClient(cfg, store, nil, nil, &fakeUploader{})
	err := uploader.Execute(context.Background(), batch)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	batch.VideoFile = filepath.Join(cfg.Paths.VideoDir, "missing.mp4")
	err = uploader.Execute(context.Background(), batch)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}

func TestExecutePropagatesUploadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStorage("videos"))
	store := testsupport.MustOpenStore(t, cfg)
	batch := renderedBatch(t, store, cfg.Paths.VideoDir)

	uploader := uploading.NewUploaderWithClient(cfg, store, nil, nil, &fakeUploader{err: errors.New("denied")})
	err := uploader.Execute(context.Background(), batch)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, statErr := os.Stat(batch.VideoFile); statErr != nil {
		t.Fatal("expected local video retained after failed upload")
	}
}

func TestExecuteUnconfiguredStorage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := renderedBatch(t, store, cfg.Paths.VideoDir)

	uploader := uploading.NewUploader(cfg, store, nil, nil)
	err := uploader.Execute(context.Background(), batch)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	uploader := uploading.NewUploader(cfg, store, nil, nil)
	if health := uploader.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy uploader without storage config")
	}

	cfg = testsupport.NewConfig(t, testsupport.WithStorage("videos"))
	uploader = uploading.NewUploader(cfg, store, nil, nil)
	if health := uploader.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy uploader, got %q", health.Detail)
	}
}
