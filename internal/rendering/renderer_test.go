package rendering

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/media/slideshow"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

func seedBatchWithImages(t *testing.T, store *queue.Store, imageDir string, count int) *queue.Batch {
	t.Helper()
	ctx := context.Background()
	batch := testsupport.NewBatch(t, store, "Test Batch")
	for i := 0; i < count; i++ {
		path := filepath.Join(imageDir, batch.VideoID+"-"+string(rune('a'+i))+".png")
		if err := os.WriteFile(path, testsupport.PNGBytes(t, 8, 8), 0o644); err != nil {
			t.Fatalf("write image: %v", err)
		}
		if _, err := store.AddImage(ctx, batch.ID, queue.Image{
			Path: path, Format: "png", Width: 8, Height: 8, SizeBytes: 100,
		}); err != nil {
			t.Fatalf("AddImage: %v", err)
		}
	}
	batch.Status = queue.StatusReady
	if err := store.Update(ctx, batch); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return batch
}

func healthyProbe(context.Context, string, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 1080, Height: 1920}},
		Format:  ffprobe.Format{Duration: "8.0"},
	}, nil
}

func TestExecuteRendersAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinImages(2))
	store := testsupport.MustOpenStore(t, cfg)
	batch := seedBatchWithImages(t, store, cfg.Paths.ImageDir, 2)

	var renderedImages []string
	renderer := NewRenderer(cfg, store, nil, nil)
	renderer.renderFunc = func(_ context.Context, images []string, output string, _ slideshow.Options) error {
		renderedImages = append([]string(nil), images...)
		return os.WriteFile(output, []byte("video"), 0o644)
	}
	renderer.probeFunc = healthyProbe

	ctx := context.Background()
	if err := renderer.Prepare(ctx, batch); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := renderer.Execute(ctx, batch); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if batch.Status != queue.StatusRendered {
		t.Fatalf("expected rendered status, got %s", batch.Status)
	}
	if dir := filepath.Dir(batch.VideoFile); dir != cfg.Paths.VideoDir {
		t.Fatalf("unexpected video dir: %q", dir)
	}
	base := filepath.Base(batch.VideoFile)
	if !strings.HasPrefix(base, "slideshow_") || !strings.HasSuffix(base, "_"+batch.VideoID+".mp4") {
		t.Fatalf("unexpected video file name: %q", base)
	}
	if len(renderedImages) != 2 {
		t.Fatalf("expected 2 images rendered, got %d", len(renderedImages))
	}
	if _, err := os.Stat(batch.VideoFile); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !strings.Contains(batch.RenderDetails, `"images":2`) {
		t.Fatalf("expected render details recorded, got %q", batch.RenderDetails)
	}

	for _, path := range renderedImages {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected source image %q removed", path)
		}
	}
	images, err := store.ImagesForBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ImagesForBatch: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected image rows removed, got %d", len(images))
	}
}

func TestExecuteRejectsShortBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinImages(5))
	store := testsupport.MustOpenStore(t, cfg)
	batch := seedBatchWithImages(t, store, cfg.Paths.ImageDir, 2)

	renderer := NewRenderer(cfg, store, nil, nil)
	renderer.probeFunc = healthyProbe

	err := renderer.Execute(context.Background(), batch)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestExecuteCleansUpFailedRender(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinImages(2))
	store := testsupport.MustOpenStore(t, cfg)
	batch := seedBatchWithImages(t, store, cfg.Paths.ImageDir, 2)

	var output string
	renderer := NewRenderer(cfg, store, nil, nil)
	renderer.renderFunc = func(_ context.Context, _ []string, out string, _ slideshow.Options) error {
		output = out
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return errors.New("encoder crashed")
	}
	renderer.probeFunc = healthyProbe

	err := renderer.Execute(context.Background(), batch)
	if err == nil {
		t.Fatal("expected render error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}

	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output removed")
	}

	// Images survive a failed render for the retry.
	images, err2 := store.ImagesForBatch(context.Background(), batch.ID)
	if err2 != nil {
		t.Fatalf("ImagesForBatch: %v", err2)
	}
	if len(images) != 2 {
		t.Fatalf("expected images retained, got %d", len(images))
	}
}

func TestExecuteRejectsInvalidProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinImages(2))
	store := testsupport.MustOpenStore(t, cfg)
	batch := seedBatchWithImages(t, store, cfg.Paths.ImageDir, 2)

	renderer := NewRenderer(cfg, store, nil, nil)
	renderer.renderFunc = func(_ context.Context, _ []string, output string, _ slideshow.Options) error {
		return os.WriteFile(output, []byte("video"), 0o644)
	}
	renderer.probeFunc = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{}, nil
	}

	if err := renderer.Execute(context.Background(), batch); err == nil {
		t.Fatal("expected probe validation error")
	}
}

func TestExecuteRejectsDurationMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMinImages(2))
	store := testsupport.MustOpenStore(t, cfg)
	batch := seedBatchWithImages(t, store, cfg.Paths.ImageDir, 2)

	var output string
	renderer := NewRenderer(cfg, store, nil, nil)
	renderer.renderFunc = func(_ context.Context, _ []string, out string, _ slideshow.Options) error {
		output = out
		return os.WriteFile(out, []byte("video"), 0o644)
	}
	// 2 images at 4s each should land near 8s; 30s means ffmpeg produced
	// something other than the requested slideshow.
	renderer.probeFunc = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 1080, Height: 1920}},
			Format:  ffprobe.Format{Duration: "30.0"},
		}, nil
	}

	err := renderer.Execute(context.Background(), batch)
	if err == nil {
		t.Fatal("expected duration mismatch error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected mismatched output removed")
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	renderer := NewRenderer(cfg, store, nil, nil)
	health := renderer.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy renderer, got %q", health.Detail)
	}
}
