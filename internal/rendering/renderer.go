// Package rendering turns a ready batch of images into a slideshow video.
package rendering

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/media/slideshow"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Renderer is the stage handler for ready batches.
type Renderer struct {
	store    *queue.Store
	config   *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	renderFunc func(context.Context, []string, string, slideshow.Options) error
	probeFunc  func(context.Context, string, string) (ffprobe.Result, error)
}

// NewRenderer constructs the rendering stage handler.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Renderer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "renderer"))
	}
	return &Renderer{
		store:      store,
		config:     cfg,
		logger:     stageLogger,
		notifier:   notifier,
		renderFunc: slideshow.Render,
		probeFunc:  ffprobe.Inspect,
	}
}

func (r *Renderer) Prepare(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, r.logger)
	batch.InitProgress("Rendering", "Preparing slideshow render")
	logger.Info("starting render preparation",
		logging.String("title", strings.TrimSpace(batch.Title)),
		logging.Int("images", batch.ImageCount))
	return nil
}

func (r *Renderer) Execute(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, r.logger)

	images, err := r.store.ImagesForBatch(ctx, batch.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "load images", "Failed to load batch images", err)
	}
	if len(images) < r.config.Slideshow.MinImages {
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate inputs",
			fmt.Sprintf("Batch has %d images, %d required", len(images), r.config.Slideshow.MinImages),
			nil,
		)
	}

	paths := make([]string, 0, len(images))
	for _, img := range images {
		if _, err := os.Stat(img.Path); err != nil {
			return services.Wrap(services.ErrValidation, "rendering", "validate inputs",
				fmt.Sprintf("Image file missing: %s", img.Path), err)
		}
		paths = append(paths, img.Path)
	}

	opts := slideshow.Options{
		FFmpegBinary:  r.config.FFmpegBinary(),
		Width:         r.config.Slideshow.Width,
		Height:        r.config.Slideshow.Height,
		FPS:           r.config.Slideshow.FPS,
		ImageDuration: r.config.Slideshow.ImageDuration,
		Background:    r.config.Slideshow.Background,
		Preset:        r.config.Slideshow.Preset,
	}
	if soundtrack := strings.TrimSpace(r.config.Slideshow.SoundtrackPath); soundtrack != "" {
		if _, err := os.Stat(soundtrack); err == nil {
			opts.SoundtrackPath = soundtrack
		} else {
			logger.Warn("soundtrack missing, rendering silent video",
				logging.String("soundtrack", soundtrack))
		}
	}

	outputPath := filepath.Join(r.config.Paths.VideoDir,
		fmt.Sprintf("slideshow_%d_%s.mp4", time.Now().Unix(), batch.VideoID))
	r.updateProgress(ctx, batch, fmt.Sprintf("Rendering %d images", len(paths)), 10)
	logger.Info("rendering slideshow",
		logging.Int("images", len(paths)),
		logging.String("output", outputPath),
		logging.Bool("soundtrack", opts.SoundtrackPath != ""))

	renderCtx := ctx
	if timeout := time.Duration(r.config.Slideshow.RenderTimeout) * time.Second; timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := r.renderFunc(renderCtx, paths, outputPath, opts); err != nil {
		_ = fileutil.RemoveIfExists(outputPath)
		return services.Wrap(services.ErrExternalTool, "rendering", "run ffmpeg", "Slideshow render failed", err)
	}

	r.updateProgress(ctx, batch, "Validating rendered video", 80)
	result, err := r.probeFunc(ctx, r.config.FFprobeBinary(), outputPath)
	if err != nil {
		_ = fileutil.RemoveIfExists(outputPath)
		return services.Wrap(services.ErrExternalTool, "rendering", "probe output", "Rendered video failed inspection", err)
	}
	video := result.VideoStream()
	if video == nil {
		_ = fileutil.RemoveIfExists(outputPath)
		return services.Wrap(services.ErrExternalTool, "rendering", "probe output", "Rendered file has no video stream", nil)
	}
	if result.DurationSeconds() <= 0 {
		_ = fileutil.RemoveIfExists(outputPath)
		return services.Wrap(services.ErrExternalTool, "rendering", "probe output", "Rendered file has no duration", nil)
	}
	expected := opts.TotalDuration(len(paths))
	// Concat and audio trimming can drift by a frame or two, never by a
	// whole segment.
	tolerance := opts.ImageDuration
	if tolerance < 1 {
		tolerance = 1
	}
	if diff := math.Abs(result.DurationSeconds() - expected); diff > tolerance {
		_ = fileutil.RemoveIfExists(outputPath)
		return services.Wrap(services.ErrExternalTool, "rendering", "probe output",
			fmt.Sprintf("Rendered duration %.2fs deviates from expected %.2fs", result.DurationSeconds(), expected), nil)
	}

	batch.VideoFile = outputPath
	batch.Status = queue.StatusRendered
	batch.RenderDetails = renderDetailsJSON(len(paths), opts, result.DurationSeconds(), time.Since(start))
	batch.SetProgressComplete("Rendered", fmt.Sprintf("Rendered %s", filepath.Base(outputPath)))

	// Source images are no longer needed once the video exists.
	r.cleanupImages(ctx, batch, images)

	logger.Info("render completed",
		logging.String("output", outputPath),
		logging.Float64("duration_seconds", result.DurationSeconds()),
		logging.Duration("render_time", time.Since(start)))

	if r.notifier != nil {
		videoDuration := time.Duration(result.DurationSeconds() * float64(time.Second))
		if err := r.notifier.NotifyRenderCompleted(ctx, batch.Title, videoDuration); err != nil {
			logger.Warn("render notification failed", logging.Error(err))
		}
	}
	return nil
}

func renderDetailsJSON(imageCount int, opts slideshow.Options, durationSeconds float64, renderTime time.Duration) string {
	details := map[string]any{
		"images":           imageCount,
		"width":            opts.Width,
		"height":           opts.Height,
		"fps":              opts.FPS,
		"image_duration":   opts.ImageDuration,
		"preset":           opts.Preset,
		"soundtrack":       opts.SoundtrackPath != "",
		"duration_seconds": durationSeconds,
		"render_seconds":   renderTime.Seconds(),
	}
	data, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	return string(data)
}

func (r *Renderer) cleanupImages(ctx context.Context, batch *queue.Batch, images []*queue.Image) {
	logger := logging.WithContext(ctx, r.logger)
	for _, img := range images {
		if err := fileutil.RemoveIfExists(img.Path); err != nil {
			logger.Warn("failed to remove source image",
				logging.String("path", img.Path),
				logging.Error(err))
		}
	}
	if _, err := r.store.RemoveImages(ctx, batch.ID); err != nil {
		logger.Warn("failed to remove image rows", logging.Error(err))
	}
}

// HealthCheck verifies ffmpeg and ffprobe availability and the video directory.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "renderer"
	if r.config == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.config.Paths.VideoDir) == "" {
		return stage.Unhealthy(name, "video directory not configured")
	}
	statuses := deps.CheckBinaries(deps.Default(r.config))
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return stage.Unhealthy(name, status.Detail)
		}
	}
	return stage.Healthy(name)
}

func (r *Renderer) updateProgress(ctx context.Context, batch *queue.Batch, message string, percent float64) {
	logger := logging.WithContext(ctx, r.logger)
	copy := *batch
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := r.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist render progress", logging.Error(err))
		return
	}
	*batch = copy
}
