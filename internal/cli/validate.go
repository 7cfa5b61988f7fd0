package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/internal/platform"
	"github.com/sdejongh/diffnorris/pkg/config"
	"github.com/sdejongh/diffnorris/pkg/models"
)

// validateCompareFlags validates the compare command locations
func validateCompareFlags() (old, new platform.Location, err error) {
	old, err = platform.ParseLocation(compareFlags.Old)
	if err != nil {
		return old, new, fmt.Errorf("invalid old location: %w", err)
	}
	new, err = platform.ParseLocation(compareFlags.New)
	if err != nil {
		return old, new, fmt.Errorf("invalid new location: %w", err)
	}

	if reason := platform.Overlap(old, new); reason != "" {
		return old, new, fmt.Errorf("%s: %s, %s", reason, old, new)
	}

	if compareFlags.Bandwidth != "" {
		if _, err := parseBandwidth(compareFlags.Bandwidth); err != nil {
			return old, new, err
		}
	}

	return old, new, nil
}

// loadConfig loads configuration from file or defaults, with .env and
// DIFFNORRIS_* overrides applied
func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles()
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with explicitly set flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("max-differences") {
		cfg.Comparison.MaxDifferences = compareFlags.MaxDifferences
	}
	if flags.Changed("ignore-case") {
		cfg.Comparison.CaseSensitive = !compareFlags.IgnoreCase
	}
	if flags.Changed("compare-read-only") {
		cfg.Comparison.CompareReadOnlyFields = compareFlags.CompareReadOnly
	}
	if flags.Changed("ignore-order") {
		cfg.Comparison.IgnoreCollectionOrderGlobally = compareFlags.IgnoreOrder
	}
	for _, p := range compareFlags.Ignore {
		cfg.Comparison.Rules = append(cfg.Comparison.Rules, models.IgnoreRule{PathPattern: p, IgnoreCompletely: true})
	}
	for _, p := range compareFlags.Unordered {
		cfg.Comparison.Rules = append(cfg.Comparison.Rules, models.IgnoreRule{PathPattern: p, IgnoreCollectionOrder: true})
	}

	// Exclude patterns
	if len(compareFlags.Exclude) > 0 {
		cfg.Exclude = compareFlags.Exclude
	}

	if flags.Changed("format") {
		cfg.Storage.DocumentFormat = compareFlags.DocumentFormat
	}
	if flags.Changed("supported-only") {
		cfg.Storage.SupportedOnly = compareFlags.SupportedOnly
	}
	if compareFlags.Credentials != "" {
		cfg.Storage.CredentialsFile = compareFlags.Credentials
	}

	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !compareFlags.NoCache
	}
	if compareFlags.Bandwidth != "" {
		bps, err := parseBandwidth(compareFlags.Bandwidth)
		if err != nil {
			return err
		}
		cfg.Performance.BandwidthLimit = bps
	}
	if compareFlags.PipelineThreshold > 0 {
		cfg.Performance.PipelineThreshold = compareFlags.PipelineThreshold
	}

	// Output format
	if compareFlags.Output != "" {
		cfg.Output.Format = compareFlags.Output
	}
	if compareFlags.DiffReport != "" {
		cfg.Output.DifferencesFile = compareFlags.DiffReport
	}
	if flags.Changed("diff-format") {
		cfg.Output.DifferencesFormat = compareFlags.DiffFormat
	}

	// Logging
	if compareFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = compareFlags.LogFile
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = compareFlags.LogFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = compareFlags.LogLevel
	}

	if globalFlags.Quiet {
		cfg.Output.Quiet = true
	}

	// Verbose switches to the progress bar and debug logs
	if globalFlags.Verbose {
		if !flags.Changed("output") && cfg.Output.Format == "human" {
			cfg.Output.Format = "progress"
		}
		cfg.Logging.Level = "debug"
	}

	return cfg.Validate()
}

// parseBandwidth parses a bytes-per-second limit such as "512K", "10M",
// "1G" or a plain byte count. Suffixes are binary multiples.
func parseBandwidth(s string) (int64, error) {
	n, err := config.ParseByteSize(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit %q (e.g. \"10MB\", \"1GiB\")", s)
	}
	return n, nil
}
