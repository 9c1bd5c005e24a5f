// Package publishing announces uploaded videos on the results channel.
package publishing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// EventPublisher is the slice of the event bus this stage needs.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// VideoReadyEvent is the outbound message announcing a finished video.
type VideoReadyEvent struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp float64   `json:"timestamp"`
	Video     VideoInfo `json:"video"`
}

// VideoInfo carries the published video location.
type VideoInfo struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// NewVideoReadyEvent builds the announcement for a video URL. The timestamp
// of the last ingested job event is carried through when the batch has one;
// otherwise the publish time is used.
func NewVideoReadyEvent(videoURL string, eventTimestamp float64, now time.Time) VideoReadyEvent {
	timestamp := eventTimestamp
	if timestamp <= 0 {
		timestamp = float64(now.UnixMilli()) / 1000
	}
	return VideoReadyEvent{
		Type:      "video_ready",
		Source:    "video_worker",
		Timestamp: timestamp,
		Video: VideoInfo{
			Path:   videoURL,
			Format: "mp4",
		},
	}
}

// Publisher is the stage handler for uploaded batches.
type Publisher struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	bus      EventPublisher

	now func() time.Time
}

// NewPublisher constructs the publish stage handler.
func NewPublisher(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, bus EventPublisher) *Publisher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "publisher"))
	}
	return &Publisher{
		cfg:      cfg,
		store:    store,
		logger:   stageLogger,
		notifier: notifier,
		bus:      bus,
		now:      time.Now,
	}
}

func (p *Publisher) Prepare(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, p.logger)
	batch.InitProgress("Publishing", "Preparing result announcement")
	logger.Info("starting publish preparation",
		logging.String("video_url", strings.TrimSpace(batch.VideoURL)))
	return nil
}

func (p *Publisher) Execute(ctx context.Context, batch *queue.Batch) error {
	logger := logging.WithContext(ctx, p.logger)

	if strings.TrimSpace(batch.VideoURL) == "" {
		return services.Wrap(services.ErrValidation, "publishing", "validate inputs",
			"No video URL present; upload must complete before publishing", nil)
	}
	if p.bus == nil {
		return services.Wrap(services.ErrConfiguration, "publishing", "validate bus",
			"Event bus unavailable", nil)
	}

	channel := p.cfg.ResultsChannel()
	if channel == "" {
		return services.Wrap(services.ErrConfiguration, "publishing", "resolve channel",
			"No results channel configured", nil)
	}

	event := NewVideoReadyEvent(batch.VideoURL, batch.EventTimestamp, p.now())
	if err := p.bus.Publish(ctx, channel, event); err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "publish event",
			"Failed to publish video_ready event", err)
	}

	batch.Status = queue.StatusCompleted
	batch.SetProgressComplete("Completed", "Video announced on "+channel)
	logger.Info("publish completed",
		logging.String("channel", channel),
		logging.String("video_url", batch.VideoURL))

	if p.notifier != nil {
		if err := p.notifier.NotifyPublishCompleted(ctx, batch.Title, batch.VideoURL); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies the event bus and results channel configuration.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	const name = "publisher"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if p.cfg.ResultsChannel() == "" {
		return stage.Unhealthy(name, "results channel not configured")
	}
	if p.bus == nil {
		return stage.Unhealthy(name, "event bus unavailable")
	}
	return stage.Healthy(name)
}
