package config

const (
	defaultImageDir      = "~/.local/share/reelsmith/data/images"
	defaultVideoDir      = "~/.local/share/reelsmith/data/videos"
	defaultAssetDir      = "~/.local/share/reelsmith/assets"
	defaultLogDir        = "~/.local/share/reelsmith/logs"
	defaultRedisAddr     = "localhost:6379"
	defaultUploadFolder  = "jobs/videos"
	defaultMinImages     = 10
	defaultImageDuration = 4.0
	defaultFPS           = 24
	defaultWidth         = 1080
	defaultHeight        = 1920
	defaultBackground    = "white"
	defaultPreset        = "medium"
	defaultRenderTimeout = 600
	defaultMaxImageBytes = 10 * 1024 * 1024
	defaultMaxDimension  = 5000
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImageDir: defaultImageDir,
			VideoDir: defaultVideoDir,
			AssetDir: defaultAssetDir,
			LogDir:   defaultLogDir,
		},
		Redis: Redis{
			Addr: defaultRedisAddr,
		},
		Storage: Storage{
			UploadFolder: defaultUploadFolder,
		},
		Slideshow: Slideshow{
			MinImages:     defaultMinImages,
			ImageDuration: defaultImageDuration,
			FPS:           defaultFPS,
			Width:         defaultWidth,
			Height:        defaultHeight,
			Background:    defaultBackground,
			Preset:        defaultPreset,
			RenderTimeout: defaultRenderTimeout,
		},
		Ingest: Ingest{
			MaxImageBytes: defaultMaxImageBytes,
			MaxDimension:  defaultMaxDimension,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Render:         true,
			Upload:         true,
			Publish:        true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			HeartbeatTimeout:   120,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
