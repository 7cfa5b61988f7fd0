package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "DIFFNORRIS_"

// LoadEnvFiles loads .env from the working directory and from the config
// directory. Variables already set in the environment win.
func LoadEnvFiles() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	if path, err := DefaultConfigPath(); err == nil {
		envPath := filepath.Join(filepath.Dir(path), ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with DIFFNORRIS_* variables
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.int("MAX_DIFFERENCES", &cfg.Comparison.MaxDifferences)
	e.bool("CASE_SENSITIVE", &cfg.Comparison.CaseSensitive)
	e.bool("COMPARE_READ_ONLY", &cfg.Comparison.CompareReadOnlyFields)
	e.bool("IGNORE_ORDER", &cfg.Comparison.IgnoreCollectionOrderGlobally)

	e.bool("CACHE_ENABLED", &cfg.Cache.Enabled)
	e.duration("CACHE_TTL", &cfg.Cache.TTL)
	e.int("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)

	e.int("PIPELINE_THRESHOLD", &cfg.Performance.PipelineThreshold)
	e.bytes("BANDWIDTH_LIMIT", &cfg.Performance.BandwidthLimit)

	e.string("DOCUMENT_FORMAT", &cfg.Storage.DocumentFormat)
	e.string("GCS_CREDENTIALS", &cfg.Storage.CredentialsFile)

	e.string("OUTPUT_FORMAT", &cfg.Output.Format)
	e.string("DIFFERENCES_FILE", &cfg.Output.DifferencesFile)

	e.string("LOG_LEVEL", &cfg.Logging.Level)
	e.string("LOG_FORMAT", &cfg.Logging.Format)
	if e.string("LOG_FILE", &cfg.Logging.File) && cfg.Logging.File != "" {
		cfg.Logging.Enabled = true
	}

	if v, ok := e.get("EXCLUDE"); ok {
		cfg.Exclude = splitList(v)
	}

	return e.err
}

// envReader records the first parse error and ignores later variables
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v, ok := e.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(name, v string, err error) {
	e.err = fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, v, err)
}

func (e *envReader) string(name string, dst *string) bool {
	v, ok := e.get(name)
	if ok {
		*dst = v
	}
	return ok
}

func (e *envReader) int(name string, dst *int) {
	if v, ok := e.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) bytes(name string, dst *int64) {
	if v, ok := e.get(name); ok {
		n, err := ParseByteSize(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if v, ok := e.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v, ok := e.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(name, v, err)
			return
		}
		*dst = d
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
