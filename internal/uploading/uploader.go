// Package uploading pushes rendered videos to the configured R2 bucket.
package uploading

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/services/r2"
	"reelsmith/internal/stage"
)

// VideoUploader is the slice of the storage client this stage needs.
type VideoUploader interface {
	UploadVideo(ctx context.Context, localPath, videoID string) (r2.UploadResult, error)
}

// Uploader is the stage handler for rendered batches.
type Uploader struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service

	client VideoUploader
}

// NewUploader constructs the upload stage handler. The storage client is
// built lazily on first execution so an unconfigured daemon can still start.
func NewUploader(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Uploader {
	return NewUploaderWithClient(cfg, store, logger, notifier, nil)
}

// NewUploaderWithClient allows injecting the storage client (used in tests).
func NewUploaderWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, client VideoUploader) *Uploader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "uploader"))
	}
	return &Uploader{cfg: cfg, store: store, logger: stageLogger, notifier: notifier, client: client}
}

func (u *Uploader) Prepare(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, u.logger)
	batch.InitProgress("Uploading", "Preparing video upload")
	logger.Info("starting upload preparation",
		logging.String("video_file", strings.TrimSpace(batch.VideoFile)))
	return nil
}

func (u *Uploader) Execute(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, u.logger)

	if strings.TrimSpace(batch.VideoFile) == "" {
		return services.Wrap(services.ErrValidation, "uploading", "validate inputs",
			"No rendered video present for upload", nil)
	}
	if _, err := os.Stat(batch.VideoFile); err != nil {
		return services.Wrap(services.ErrValidation, "uploading", "validate inputs",
			fmt.Sprintf("Rendered video missing: %s", batch.VideoFile), err)
	}

	client := u.client
	if client == nil {
		built, err := r2.New(ctx, u.cfg)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "uploading", "build storage client",
				"Storage is not configured; set the storage section in config.toml", err)
		}
		client = built
		u.client = built
	}

	sizeBytes, _ := fileutil.FileSize(batch.VideoFile)
	u.updateProgress(ctx, batch, fmt.Sprintf("Uploading %s", filepath.Base(batch.VideoFile)), 20)
	logger.Info("uploading video",
		logging.String("video_file", batch.VideoFile),
		logging.String("video_id", batch.VideoID),
		logging.Int64("size_bytes", sizeBytes))

	result, err := client.UploadVideo(ctx, batch.VideoFile, batch.VideoID)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "uploading", "put object",
			"Video upload failed", err)
	}

	batch.UploadKey = result.Key
	batch.VideoURL = result.PublicURL
	batch.Status = queue.StatusUploaded
	batch.SetProgressComplete("Uploaded", fmt.Sprintf("Stored as %s", result.Key))

	// The bucket copy is now authoritative.
	if err := fileutil.RemoveIfExists(batch.VideoFile); err != nil {
		logger.Warn("failed to remove local video", logging.Error(err))
	}

	logger.Info("upload completed",
		logging.String("key", result.Key),
		logging.String("url", result.PublicURL))

	if u.notifier != nil {
		if err := u.notifier.NotifyUploadCompleted(ctx, batch.Title, result.PublicURL); err != nil {
			logger.Warn("upload notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies storage configuration.
func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "uploader"
	if u.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if !u.cfg.StorageConfigured() {
		return stage.Unhealthy(name, "storage credentials not configured")
	}
	return stage.Healthy(name)
}

func (u *Uploader) updateProgress(ctx context.Context, batch *queue.Batch, message string, percent float64) {
	logger := logging.WithContext(ctx, u.logger)
	copy := *batch
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := u.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist upload progress", logging.Error(err))
		return
	}
	*batch = copy
}
