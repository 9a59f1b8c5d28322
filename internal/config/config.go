// Package config loads and validates downloader configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/vaultdl/internal/errlog"
	"github.com/JakeFAU/vaultdl/internal/filter"
	"github.com/JakeFAU/vaultdl/internal/pathsafe"
	"github.com/JakeFAU/vaultdl/internal/storage/local"
)

// EnvPrefix namespaces environment overrides, e.g. VAULTDL_DOWNLOAD_THREADS.
const EnvPrefix = "VAULTDL"

// Config captures every knob of a download run.
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Filter   filter.Config  `mapstructure:"filter"`
	Sanitize SanitizeConfig `mapstructure:"sanitize"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DownloadConfig governs the worker pool and destination writes.
type DownloadConfig struct {
	Threads   int    `mapstructure:"threads"`
	ChunkSize int    `mapstructure:"chunk_size"`
	Scheme    string `mapstructure:"scheme"`
	ErrorLog  string `mapstructure:"error_log"`
}

// HTTPConfig configures both fetchers.
type HTTPConfig struct {
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	DownloadTimeoutSeconds int    `mapstructure:"download_timeout_seconds"`
	UserAgent              string `mapstructure:"user_agent"`
	MaxPageBytes           int    `mapstructure:"max_page_bytes"`
}

// SanitizeConfig controls destination path mapping.
type SanitizeConfig struct {
	Strict          bool `mapstructure:"strict"`
	MaxSegmentBytes int  `mapstructure:"max_segment_bytes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Verbose     bool `mapstructure:"verbose"`
}

// ProgressConfig toggles the terminal progress bar.
type ProgressConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig names the optional Prometheus textfile written after a run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// New returns a Viper instance with defaults and environment overrides
// applied. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.threads", 8)
	v.SetDefault("download.chunk_size", local.DefaultChunkSize)
	v.SetDefault("download.scheme", "https")
	v.SetDefault("download.error_log", errlog.DefaultPath)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.download_timeout_seconds", 600)
	v.SetDefault("http.user_agent", "vaultdl/1.0")
	v.SetDefault("http.max_page_bytes", 10*1024*1024)
	v.SetDefault("filter.no_photos", false)
	v.SetDefault("filter.no_audio_video", false)
	v.SetDefault("filter.no_documents", false)
	v.SetDefault("sanitize.strict", false)
	v.SetDefault("sanitize.max_segment_bytes", pathsafe.DefaultMaxSegmentBytes)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.verbose", false)
	v.SetDefault("progress.enabled", true)
	v.SetDefault("metrics.textfile", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Download.Threads <= 0 {
		return fmt.Errorf("download.threads must be > 0")
	}
	if c.Download.ChunkSize <= 0 {
		return fmt.Errorf("download.chunk_size must be > 0")
	}
	if c.Download.Scheme != "http" && c.Download.Scheme != "https" {
		return fmt.Errorf("download.scheme must be http or https, got %q", c.Download.Scheme)
	}
	if strings.TrimSpace(c.Download.ErrorLog) == "" {
		return fmt.Errorf("download.error_log must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.DownloadTimeoutSeconds <= 0 {
		return fmt.Errorf("http.download_timeout_seconds must be > 0")
	}
	if c.HTTP.MaxPageBytes <= 0 {
		return fmt.Errorf("http.max_page_bytes must be > 0")
	}
	if c.Sanitize.MaxSegmentBytes < 16 || c.Sanitize.MaxSegmentBytes > 255 {
		return fmt.Errorf("sanitize.max_segment_bytes must be within [16, 255]")
	}
	return nil
}

// RequestTimeout bounds landing page and manifest requests.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// DownloadTimeout bounds a single item download, body included.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.HTTP.DownloadTimeoutSeconds) * time.Second
}

// Sanitizer builds the path sanitizer for this run.
func (c Config) Sanitizer() pathsafe.Sanitizer {
	return pathsafe.Sanitizer{Strict: c.Sanitize.Strict, MaxSegmentBytes: c.Sanitize.MaxSegmentBytes}
}
