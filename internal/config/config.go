package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the worker.
type Paths struct {
	ImageDir string `toml:"image_dir"`
	VideoDir string `toml:"video_dir"`
	AssetDir string `toml:"asset_dir"`
	LogDir   string `toml:"log_dir"`
}

// Redis contains connection and channel configuration for the event bus.
type Redis struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	Channel        string `toml:"channel"`
	ResultsChannel string `toml:"results_channel"`
}

// Storage contains configuration for the S3-compatible video bucket.
type Storage struct {
	AccountID     string `toml:"account_id"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	PublicBaseURL string `toml:"public_base_url"`
	UploadFolder  string `toml:"upload_folder"`
	// Endpoint overrides the derived R2 endpoint. Used in tests.
	Endpoint string `toml:"endpoint"`
}

// Slideshow contains rendering parameters for generated videos.
type Slideshow struct {
	MinImages      int     `toml:"min_images"`
	ImageDuration  float64 `toml:"image_duration"`
	FPS            int     `toml:"fps"`
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	Background     string  `toml:"background"`
	SoundtrackPath string  `toml:"soundtrack_path"`
	Preset         string  `toml:"preset"`
	RenderTimeout  int     `toml:"render_timeout"`
}

// Ingest contains validation limits for incoming images.
type Ingest struct {
	MaxImageBytes int64 `toml:"max_image_bytes"`
	MaxDimension  int   `toml:"max_dimension"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Render         bool   `toml:"render"`
	Upload         bool   `toml:"upload"`
	Publish        bool   `toml:"publish"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains daemon timing and interval configuration.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Sections by subsystem:
//   - Paths: image staging, video output, soundtrack assets, logs
//   - Redis: event bus connection and channels
//   - Storage: R2/S3 bucket for finished videos
//   - Slideshow: rendering geometry and timing
//   - Ingest: image validation limits
//   - Notifications: ntfy push notification settings
//   - Workflow: polling intervals and heartbeat timeouts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Redis         Redis         `toml:"redis"`
	Storage       Storage       `toml:"storage"`
	Slideshow     Slideshow     `toml:"slideshow"`
	Ingest        Ingest        `toml:"ingest"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ImageDir, c.Paths.VideoDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for rendering.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for video validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// StorageEndpoint returns the S3 endpoint, deriving the Cloudflare R2
// endpoint from the account ID when no override is configured.
func (c *Config) StorageEndpoint() string {
	if endpoint := strings.TrimSpace(c.Storage.Endpoint); endpoint != "" {
		return endpoint
	}
	account := strings.TrimSpace(c.Storage.AccountID)
	if account == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", account)
}

// StorageConfigured reports whether the upload stage has usable credentials.
func (c *Config) StorageConfigured() bool {
	return strings.TrimSpace(c.Storage.Bucket) != "" &&
		strings.TrimSpace(c.Storage.AccessKey) != "" &&
		strings.TrimSpace(c.Storage.SecretKey) != "" &&
		c.StorageEndpoint() != ""
}

// ResultsChannel returns the channel video_ready events are published to,
// defaulting to the ingest channel when unset.
func (c *Config) ResultsChannel() string {
	if channel := strings.TrimSpace(c.Redis.ResultsChannel); channel != "" {
		return channel
	}
	return strings.TrimSpace(c.Redis.Channel)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
