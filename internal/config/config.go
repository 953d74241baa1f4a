package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"VD_ENV" default:"development"`

	HTTPPort    int           `envconfig:"VD_HTTP_PORT" default:"8000"`
	HTTPTimeout time.Duration `envconfig:"VD_HTTP_TIMEOUT" default:"30s"`

	WorkerPoolSize  int           `envconfig:"VD_WORKER_POOL_SIZE" default:"3"`
	DownloadTimeout time.Duration `envconfig:"VD_DOWNLOAD_TIMEOUT" default:"30m"`
	MetadataTimeout time.Duration `envconfig:"VD_METADATA_TIMEOUT" default:"45s"`

	DownloadDir string `envconfig:"VD_DOWNLOAD_DIR" default:"./downloads"`
	TempDir     string `envconfig:"VD_TEMP_DIR" default:"./downloads/tmp"`

	YTDLPPath  string `envconfig:"VD_YTDLP_PATH" default:"yt-dlp"`
	FFmpegPath string `envconfig:"VD_FFMPEG_PATH" default:"ffmpeg"`

	CleanupInterval time.Duration `envconfig:"VD_CLEANUP_INTERVAL" default:"1h"`
	MaxFileAge      time.Duration `envconfig:"VD_MAX_FILE_AGE" default:"24h"`

	// JobTTL > 0 enables eviction of terminal job records older than the TTL.
	// Zero keeps every record for the lifetime of the process.
	JobTTL time.Duration `envconfig:"VD_JOB_TTL" default:"0"`

	ShutdownTimeout time.Duration `envconfig:"VD_SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"VD_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"VD_LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive: %d", c.WorkerPoolSize)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}
	if c.TempDir == "" {
		return fmt.Errorf("temp directory cannot be empty")
	}

	if c.YTDLPPath == "" {
		return fmt.Errorf("yt-dlp path cannot be empty")
	}

	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive: %s", c.CleanupInterval)
	}
	if c.MaxFileAge <= 0 {
		return fmt.Errorf("max file age must be positive: %s", c.MaxFileAge)
	}
	if c.JobTTL < 0 {
		return fmt.Errorf("job TTL cannot be negative: %s", c.JobTTL)
	}

	return nil
}
