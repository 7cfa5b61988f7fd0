package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// ============== Default / Validate Tests ==============

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Comparison.MaxDifferences)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, cache.DefaultTTL, cfg.Cache.TTL)
	assert.Equal(t, 100, cfg.Performance.PipelineThreshold)
	assert.Equal(t, "human", cfg.Output.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"NegativeMaxDifferences", func(c *Config) { c.Comparison.MaxDifferences = -1 }, "MaxDifferences"},
		{"NegativeTTL", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl"},
		{"SmallBuffer", func(c *Config) { c.Performance.BufferSize = 10 }, "performance.buffer_size"},
		{"NegativeBandwidth", func(c *Config) { c.Performance.BandwidthLimit = -1 }, "performance.bandwidth_limit"},
		{"DocumentFormat", func(c *Config) { c.Storage.DocumentFormat = "csv" }, "storage.document_format"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"ReportFormat", func(c *Config) { c.Output.DifferencesFormat = "progress" }, "output.differences_format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

// ============== YAML Tests ==============

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
comparison:
  max_differences: 50
  case_sensitive: false
  rules:
    - path: Audit.UpdatedAt
      ignore: true
    - path: Lines
      ignore_order: true
cache:
  ttl: 1h
performance:
  bandwidth_limit: 1048576
output:
  format: json
exclude:
  - "*.bak"
`))
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Comparison.MaxDifferences)
	assert.False(t, cfg.Comparison.CaseSensitive)
	assert.Equal(t, []models.IgnoreRule{
		{PathPattern: "Audit.UpdatedAt", IgnoreCompletely: true},
		{PathPattern: "Lines", IgnoreCollectionOrder: true},
	}, cfg.Comparison.Rules)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	// Untouched keys keep their defaults
	assert.Equal(t, cache.DefaultMaxEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, int64(1048576), cfg.Performance.BandwidthLimit)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, []string{"*.bak"}, cfg.Exclude)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("comparison: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("comparison:\n  max_differences: -3\n"))
	require.Error(t, err)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Comparison.Rules = []models.IgnoreRule{{PathPattern: "Id", IgnoreCompletely: true}}
	cfg.Cache.TTL = 30 * time.Minute
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Output.Format = "bogus"
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.Error(t, SaveToFile(cfg, path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// ============== Environment Tests ==============

func lookupMap(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, lookupMap(map[string]string{
		"DIFFNORRIS_MAX_DIFFERENCES": "0",
		"DIFFNORRIS_IGNORE_ORDER":    "true",
		"DIFFNORRIS_CACHE_TTL":       "90s",
		"DIFFNORRIS_OUTPUT_FORMAT":   "progress",
		"DIFFNORRIS_LOG_FILE":        "/tmp/diffnorris.log",
		"DIFFNORRIS_EXCLUDE":         "*.tmp, build/ ,",
		"DIFFNORRIS_GCS_CREDENTIALS": "/etc/key.json",
		"DIFFNORRIS_BANDWIDTH_LIMIT": "2MiB",
	}))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Comparison.MaxDifferences)
	assert.True(t, cfg.Comparison.IgnoreCollectionOrderGlobally)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "progress", cfg.Output.Format)
	assert.True(t, cfg.Logging.Enabled)
	assert.Equal(t, "/tmp/diffnorris.log", cfg.Logging.File)
	assert.Equal(t, []string{"*.tmp", "build/"}, cfg.Exclude)
	assert.Equal(t, "/etc/key.json", cfg.Storage.CredentialsFile)
	assert.Equal(t, int64(2<<20), cfg.Performance.BandwidthLimit)
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"0", 0, false},
		{"65536", 65536, false},
		{"10MB", 10000000, false},
		{"10MiB", 10 << 20, false},
		{"1.5 GiB", 3 << 29, false},
		{"lots", 0, true},
		{"", 0, true},
		{"99999999999 EiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, lookupMap(map[string]string{"DIFFNORRIS_CACHE_TTL": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DIFFNORRIS_CACHE_TTL")
	assert.Equal(t, cache.DefaultTTL, cfg.Cache.TTL)
}

func TestLoadAppliesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: json\n"), 0644))
	t.Setenv("DIFFNORRIS_OUTPUT_FORMAT", "human")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "human", cfg.Output.Format)

	t.Setenv("DIFFNORRIS_OUTPUT_FORMAT", "bogus")
	_, err = Load(path)
	assert.Error(t, err)
}

// ============== Derived Objects Tests ==============

func TestNewLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.NewLogger(os.Stderr)
	require.NoError(t, err)
	assert.IsType(t, &logging.NullLogger{}, logger)

	cfg.Logging.Enabled = true
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err = cfg.NewLogger(os.Stderr)
	require.NoError(t, err)
	defer logger.Close()
	assert.IsType(t, &logging.FileLogger{}, logger)
	_, err = os.Stat(cfg.Logging.File)
	assert.NoError(t, err)
}

func TestCacheOptions(t *testing.T) {
	cfg := Default()
	cfg.Cache.MaxEntries = 7

	var o cache.Options
	for _, opt := range cfg.CacheOptions(nil) {
		opt(&o)
	}
	assert.Equal(t, 7, o.MaxEntries)
	assert.Equal(t, cfg.Cache.TTL, o.TTL)
}
