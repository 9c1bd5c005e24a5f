package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.ImageDir, err = expandPath(c.Paths.ImageDir); err != nil {
		return err
	}
	if c.Paths.VideoDir, err = expandPath(c.Paths.VideoDir); err != nil {
		return err
	}
	if c.Paths.AssetDir, err = expandPath(c.Paths.AssetDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if soundtrack := strings.TrimSpace(c.Slideshow.SoundtrackPath); soundtrack != "" {
		// A bare file name refers to the asset directory.
		if !filepath.IsAbs(soundtrack) && !strings.HasPrefix(soundtrack, "~") {
			soundtrack = filepath.Join(c.Paths.AssetDir, soundtrack)
		}
		if c.Slideshow.SoundtrackPath, err = expandPath(soundtrack); err != nil {
			return err
		}
	}

	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	c.Redis.Channel = strings.TrimSpace(c.Redis.Channel)
	c.Redis.ResultsChannel = strings.TrimSpace(c.Redis.ResultsChannel)
	c.Storage.UploadFolder = strings.Trim(strings.TrimSpace(c.Storage.UploadFolder), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Slideshow.MinImages < 1 {
		return fmt.Errorf("config: slideshow min_images must be at least 1, got %d", c.Slideshow.MinImages)
	}
	if c.Slideshow.ImageDuration <= 0 {
		return fmt.Errorf("config: slideshow image_duration must be positive, got %v", c.Slideshow.ImageDuration)
	}
	if c.Slideshow.FPS < 1 {
		return fmt.Errorf("config: slideshow fps must be at least 1, got %d", c.Slideshow.FPS)
	}
	if c.Slideshow.Width < 2 || c.Slideshow.Height < 2 {
		return fmt.Errorf("config: slideshow resolution %dx%d is too small", c.Slideshow.Width, c.Slideshow.Height)
	}
	if c.Slideshow.Width%2 != 0 || c.Slideshow.Height%2 != 0 {
		// libx264 with yuv420p requires even dimensions.
		return fmt.Errorf("config: slideshow resolution %dx%d must use even dimensions", c.Slideshow.Width, c.Slideshow.Height)
	}
	if c.Ingest.MaxImageBytes < 1 {
		return fmt.Errorf("config: ingest max_image_bytes must be positive, got %d", c.Ingest.MaxImageBytes)
	}
	if c.Ingest.MaxDimension < 1 {
		return fmt.Errorf("config: ingest max_dimension must be positive, got %d", c.Ingest.MaxDimension)
	}
	if c.Workflow.QueuePollInterval < 1 {
		return fmt.Errorf("config: workflow queue_poll_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatInterval < 1 {
		return fmt.Errorf("config: workflow heartbeat_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf("config: workflow heartbeat_timeout (%ds) must exceed heartbeat_interval (%ds)",
			c.Workflow.HeartbeatTimeout, c.Workflow.HeartbeatInterval)
	}
	return nil
}
