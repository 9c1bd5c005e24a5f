// Package notifications pushes workflow events to ntfy when a topic is
// configured.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
)

const userAgent = "Reelsmith/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyBatchReady(ctx context.Context, title string, imageCount int) error
	NotifyRenderCompleted(ctx context.Context, title string, duration time.Duration) error
	NotifyUploadCompleted(ctx context.Context, title, videoURL string) error
	NotifyPublishCompleted(ctx context.Context, title, videoURL string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		cfg:      cfg.Notifications,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	cfg      config.Notifications
	client   *http.Client
}

func (n *ntfyService) NotifyBatchReady(ctx context.Context, title string, imageCount int) error {
	if !n.cfg.Render {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled batch"
	}
	data := payload{
		title:   "Reelsmith - Batch Ready",
		message: fmt.Sprintf("Batch ready to render: %s (%d images)", title, imageCount),
		tags:    []string{"reelsmith", "batch", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderCompleted(ctx context.Context, title string, duration time.Duration) error {
	if !n.cfg.Render {
		return nil
	}
	title = strings.TrimSpace(title)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "Reelsmith - Render Complete",
		message: fmt.Sprintf("Rendered %s (%s of video)", title, duration),
		tags:    []string{"reelsmith", "render", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, title, videoURL string) error {
	if !n.cfg.Upload {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Uploaded: %s", title)
	if videoURL = strings.TrimSpace(videoURL); videoURL != "" {
		message = fmt.Sprintf("%s\n%s", message, videoURL)
	}
	data := payload{
		title:   "Reelsmith - Upload Complete",
		message: message,
		tags:    []string{"reelsmith", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, title, videoURL string) error {
	if !n.cfg.Publish {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Published: %s", title)
	if videoURL = strings.TrimSpace(videoURL); videoURL != "" {
		message = fmt.Sprintf("%s\n%s", message, videoURL)
	}
	data := payload{
		title:    "Reelsmith - Published",
		message:  message,
		tags:     []string{"reelsmith", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.cfg.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Reelsmith - Error",
		message:  builder.String(),
		tags:     []string{"reelsmith", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reelsmith - Test",
		message:  "Notification system test",
		tags:     []string{"reelsmith", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchReady(context.Context, string, int) error                { return nil }
func (noopService) NotifyRenderCompleted(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifyUploadCompleted(context.Context, string, string) error        { return nil }
func (noopService) NotifyPublishCompleted(context.Context, string, string) error       { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
