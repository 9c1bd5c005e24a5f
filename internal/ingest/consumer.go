// Package ingest consumes job vacancy events from the Redis channel,
// validates their images, and accumulates them into the collecting batch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/config"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/imagecheck"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services/redisbus"
)

// Consumer turns inbound vacancy events into batch image rows on disk and
// in SQLite. One image batch collects at a time; once it holds enough
// images it flips to ready and the next event opens a fresh batch.
type Consumer struct {
	cfg      *config.Config
	store    *queue.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewConsumer builds an ingest consumer.
func NewConsumer(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Consumer{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger.With(logging.String(logging.FieldComponent, "ingest")),
	}
}

func imageFileName(ext string) string {
	return fmt.Sprintf("%d_%s%s", time.Now().Unix(), uuid.NewString(), ext)
}

// Run subscribes to the configured channel and consumes until ctx ends.
func (c *Consumer) Run(ctx context.Context, bus *redisbus.Bus) error {
	return bus.Subscribe(ctx, c.cfg.Redis.Channel, c.HandleMessage)
}

// HandleMessage processes a single raw message from the jobs channel.
// Non-vacancy events and invalid images are skipped without error; only
// infrastructure failures propagate.
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	event, err := ParseJobEvent(data)
	if err != nil {
		c.logger.Warn("dropping undecodable message", logging.Error(err))
		return nil
	}
	if !event.IsVacancy() {
		c.logger.Debug("skipping non-vacancy event", logging.String("type", event.Type))
		return nil
	}
	if event.Image == "" {
		c.logger.Warn("vacancy event carried no image")
		return nil
	}

	// Validate the image before touching the queue so a stream of broken
	// events cannot open or retitle a batch.
	limits := imagecheck.Limits{
		MaxBytes:     c.cfg.Ingest.MaxImageBytes,
		MaxDimension: c.cfg.Ingest.MaxDimension,
	}
	raw, err := imagecheck.DecodeBase64(event.Image)
	if err != nil {
		c.logger.Warn("skipping image", logging.Error(err))
		return nil
	}
	info, err := imagecheck.Validate(raw, limits)
	if err != nil {
		c.logger.Warn("skipping image", logging.Error(err))
		return nil
	}

	batch, err := c.store.CurrentCollecting(ctx)
	if err != nil {
		return fmt.Errorf("load collecting batch: %w", err)
	}
	if batch == nil {
		batch, err = c.store.NewBatch(ctx, event.Title())
		if err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		c.logger.Info("opened new batch",
			logging.Int64(logging.FieldBatchID, batch.ID),
			logging.String("title", batch.Title))
	}

	// The latest accepted event wins the title and timestamp carried
	// into the video_ready announcement.
	dirty := false
	if batch.Title == "" {
		if title := event.Title(); title != "" {
			batch.Title = title
			dirty = true
		}
	}
	if ts := event.Timestamp.Seconds(); ts > 0 && ts != batch.EventTimestamp {
		batch.EventTimestamp = ts
		dirty = true
	}
	if batch.SourceChannel == "" {
		batch.SourceChannel = c.cfg.Redis.Channel
		dirty = true
	}
	if dirty {
		if err := c.store.Update(ctx, batch); err != nil {
			return fmt.Errorf("update batch metadata: %w", err)
		}
	}

	path := filepath.Join(c.cfg.Paths.ImageDir, imageFileName(info.Ext()))
	if err := fileutil.WriteFileAtomic(path, raw, 0o644); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	if _, err := c.store.AddImage(ctx, batch.ID, queue.Image{
		Path:      path,
		Format:    info.Format,
		Width:     info.Width,
		Height:    info.Height,
		SizeBytes: info.SizeBytes,
	}); err != nil {
		_ = fileutil.RemoveIfExists(path)
		return fmt.Errorf("record image: %w", err)
	}

	batch, err = c.store.GetByID(ctx, batch.ID)
	if err != nil {
		return fmt.Errorf("reload batch: %w", err)
	}
	if batch == nil {
		return nil
	}

	c.logger.Info("image ingested",
		logging.Int64(logging.FieldBatchID, batch.ID),
		logging.Int("total", batch.ImageCount),
		logging.Int("threshold", c.cfg.Slideshow.MinImages))

	if batch.Status == queue.StatusCollecting && batch.ImageCount >= c.cfg.Slideshow.MinImages {
		batch.Status = queue.StatusReady
		batch.SetProgress("Ready", "Waiting for render", 0)
		if err := c.store.Update(ctx, batch); err != nil {
			return fmt.Errorf("mark batch ready: %w", err)
		}
		c.logger.Info("batch ready",
			logging.Int64(logging.FieldBatchID, batch.ID),
			logging.Int("images", batch.ImageCount))
		if c.notifier != nil {
			if err := c.notifier.NotifyBatchReady(ctx, batch.Title, batch.ImageCount); err != nil {
				c.logger.Warn("batch ready notification failed", logging.Error(err))
			}
		}
	}
	return nil
}
