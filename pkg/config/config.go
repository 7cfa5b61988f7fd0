package config

import (
	"io"
	"time"

	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Comparison  models.ComparisonConfig `yaml:"comparison"`
	Cache       CacheConfig             `yaml:"cache"`
	Performance PerformanceConfig       `yaml:"performance"`
	Storage     StorageConfig           `yaml:"storage"`
	Output      OutputConfig            `yaml:"output"`
	Logging     LoggingConfig           `yaml:"logging"`
	Exclude     []string                `yaml:"exclude"`
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	MaxBytes        int64         `yaml:"max_bytes"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	PipelineThreshold int   `yaml:"pipeline_threshold"`
	BufferSize        int   `yaml:"buffer_size"`
	BandwidthLimit    int64 `yaml:"bandwidth_limit"` // bytes per second, 0 = unlimited
}

// StorageConfig holds document source settings
type StorageConfig struct {
	DocumentFormat  string `yaml:"document_format"`  // "auto", "json", "xml" or "yaml"
	CredentialsFile string `yaml:"credentials_file"` // GCS service account key, empty = ADC
	SupportedOnly   bool   `yaml:"supported_only"`   // skip files without a known extension
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format            string `yaml:"format"`             // "human", "json" or "progress"
	Quiet             bool   `yaml:"quiet"`              // Suppress non-error output
	DifferencesFile   string `yaml:"differences_file"`   // Report path, empty = none
	DifferencesFormat string `yaml:"differences_format"` // "human" or "json"
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Format     string `yaml:"format"` // "json" or "text"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	File       string `yaml:"file"`   // Log file path (empty = stderr)
	MaxSize    int64  `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Comparison: models.DefaultComparisonConfig(),
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             cache.DefaultTTL,
			MaxEntries:      cache.DefaultMaxEntries,
			MaxBytes:        cache.DefaultMaxBytes,
			CleanupInterval: cache.DefaultCleanupInterval,
		},
		Performance: PerformanceConfig{
			PipelineThreshold: 100,
			BufferSize:        65536,
			BandwidthLimit:    0,
		},
		Storage: StorageConfig{
			DocumentFormat: "auto",
		},
		Output: OutputConfig{
			Format:            "human",
			Quiet:             false,
			DifferencesFormat: "human",
		},
		Logging: LoggingConfig{
			Enabled:    false,
			Format:     "json",
			Level:      "info",
			File:       "",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
		Exclude: []string{
			"*.tmp",
			".git/",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Comparison.Validate(); err != nil {
		return err
	}

	if c.Cache.TTL < 0 {
		return &models.ValidationError{
			Field:   "cache.ttl",
			Message: "must not be negative",
		}
	}

	if c.Cache.MaxEntries < 0 || c.Cache.MaxBytes < 0 {
		return &models.ValidationError{
			Field:   "cache.max_entries",
			Message: "cache limits must not be negative",
		}
	}

	if c.Performance.PipelineThreshold < 0 {
		return &models.ValidationError{
			Field:   "performance.pipeline_threshold",
			Message: "must not be negative",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	validDocFormats := map[string]bool{"": true, "auto": true, "json": true, "xml": true, "yaml": true, "yml": true}
	if !validDocFormats[c.Storage.DocumentFormat] {
		return &models.ValidationError{
			Field:   "storage.document_format",
			Message: "must be 'auto', 'json', 'xml' or 'yaml'",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true, "progress": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'json' or 'progress'",
		}
	}

	validReportFormats := map[string]bool{"human": true, "json": true}
	if !validReportFormats[c.Output.DifferencesFormat] {
		return &models.ValidationError{
			Field:   "output.differences_format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}

// CacheOptions converts the cache section into cache constructor options
func (c *Config) CacheOptions(logger logging.Logger) []cache.Option {
	return []cache.Option{
		cache.WithTTL(c.Cache.TTL),
		cache.WithMaxEntries(c.Cache.MaxEntries),
		cache.WithMaxBytes(c.Cache.MaxBytes),
		cache.WithCleanupInterval(c.Cache.CleanupInterval),
		cache.WithLogger(logger),
	}
}

// NewLogger builds the logger described by the logging section.
// Disabled logging yields a NullLogger; an empty file logs to stderr.
func (c *Config) NewLogger(stderr io.Writer) (logging.Logger, error) {
	if !c.Logging.Enabled {
		return logging.NewNullLogger(), nil
	}

	level := logging.ParseLevel(c.Logging.Level)
	format := logging.Format(c.Logging.Format)
	if c.Logging.File == "" {
		return logging.NewWriterLogger(stderr, format, level), nil
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       c.Logging.File,
		Format:     format,
		Level:      level,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
	})
}
