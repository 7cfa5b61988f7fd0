package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/pkg/batch"
	"github.com/sdejongh/diffnorris/pkg/cache"
	"github.com/sdejongh/diffnorris/pkg/config"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/output"
	"github.com/sdejongh/diffnorris/pkg/ratelimit"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// CompareFlags holds compare command flags
type CompareFlags struct {
	Old string
	New string

	// Comparison
	MaxDifferences  int
	IgnoreCase      bool
	CompareReadOnly bool
	IgnoreOrder     bool
	Ignore          []string
	Unordered       []string

	// Sources
	Exclude        []string
	DocumentFormat string
	SupportedOnly  bool
	Credentials    string

	// Performance
	NoCache           bool
	Bandwidth         string
	PipelineThreshold int

	// Output
	Output     string
	DiffReport string
	DiffFormat string

	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var compareFlags CompareFlags

// ExitError carries a process exit code out of a command
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two document corpora",
		Long: `Compare every document under --old with the document at the same
relative path under --new and report structural differences.

Locations are local directories or gs://bucket/prefix URIs. Documents are
decoded as JSON, XML or YAML by extension unless --format forces one.

Exit codes: 0 all equal, 1 differences found, 2 some pairs failed,
3 cancelled, 4 invalid usage or configuration.`,
		RunE: runCompare,
	}

	cmd.Flags().StringVar(&compareFlags.Old, "old", "", "baseline corpus: directory or gs://bucket/prefix (required)")
	cmd.Flags().StringVar(&compareFlags.New, "new", "", "candidate corpus: directory or gs://bucket/prefix (required)")
	cmd.MarkFlagRequired("old")
	cmd.MarkFlagRequired("new")

	cmd.Flags().IntVar(&compareFlags.MaxDifferences, "max-differences", 1000, "stop comparing a pair after this many differences (0 = unlimited)")
	cmd.Flags().BoolVar(&compareFlags.IgnoreCase, "ignore-case", false, "compare strings case-insensitively")
	cmd.Flags().BoolVar(&compareFlags.CompareReadOnly, "compare-read-only", false, "also compare read-only fields")
	cmd.Flags().BoolVar(&compareFlags.IgnoreOrder, "ignore-order", false, "ignore element order in every list")
	cmd.Flags().StringSliceVar(&compareFlags.Ignore, "ignore", []string{}, "property paths to ignore, e.g. Audit.UpdatedAt or Lines[*].Id")
	cmd.Flags().StringSliceVar(&compareFlags.Unordered, "unordered", []string{}, "list paths whose element order is ignored")

	cmd.Flags().StringSliceVar(&compareFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVar(&compareFlags.DocumentFormat, "format", "auto", "document format: auto, json, xml, yaml")
	cmd.Flags().BoolVar(&compareFlags.SupportedOnly, "supported-only", false, "skip files without a json, xml or yaml extension")
	cmd.Flags().StringVar(&compareFlags.Credentials, "credentials", "", "GCS service account key file (default: application default credentials)")

	cmd.Flags().BoolVar(&compareFlags.NoCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVarP(&compareFlags.Bandwidth, "bandwidth", "b", "", "document read bandwidth limit in bytes per second (e.g., \"10MB\", \"1GiB\")")
	cmd.Flags().IntVar(&compareFlags.PipelineThreshold, "pipeline-threshold", 0, "pair count from which the staged pipeline is used (default: 100)")

	cmd.Flags().StringVarP(&compareFlags.Output, "output", "o", "", "output format: human, json, progress")
	cmd.Flags().StringVar(&compareFlags.DiffReport, "diff-report", "", "write differences report to file")
	cmd.Flags().StringVar(&compareFlags.DiffFormat, "diff-format", "human", "differences report format: human, json")

	cmd.Flags().StringVar(&compareFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.Flags().StringVar(&compareFlags.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&compareFlags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Validate flags
	oldLoc, newLoc, err := validateCompareFlags()
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create logger
	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	stopTracing, err := setupTracing(globalFlags.TraceFile)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(stopTracing, logger)

	stopMetrics, err := serveMetrics(globalFlags.MetricsAddr, logger)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(stopMetrics, logger)

	// Create storage backends
	oldBackend, err := storage.Open(ctx, oldLoc.Path, cfg.Storage.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to open old corpus: %w", err)
	}
	defer oldBackend.Close()

	newBackend, err := storage.Open(ctx, newLoc.Path, cfg.Storage.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to open new corpus: %w", err)
	}
	defer newBackend.Close()

	pairs, err := batch.DiscoverPairs(ctx, oldBackend, newBackend, batch.DiscoverOptions{
		Exclude:       cfg.Exclude,
		SupportedOnly: cfg.Storage.SupportedOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to discover documents: %w", err)
	}

	// Create output formatter
	formatter, err := output.New(cfg.Output.Format)
	if err != nil {
		return err
	}
	var out io.Writer = cmd.OutOrStdout()
	if cfg.Output.Quiet {
		out = io.Discard
	}

	progress := func(completed, total int, status string) {
		_ = formatter.Progress(output.ProgressUpdate{Completed: completed, Total: total, Status: status})
	}
	engine, closeEngine, err := newEngine(cfg, oldBackend, newBackend, logger, progress)
	if err != nil {
		return err
	}
	defer closeEngine()

	if err := formatter.Start(out, len(pairs), engine.Fingerprint()); err != nil {
		return err
	}

	result := engine.Run(ctx, pairs)

	if err := formatter.Complete(result); err != nil {
		return err
	}

	// Write differences report if requested
	if cfg.Output.DifferencesFile != "" {
		source := output.ReportSource{Old: oldLoc.String(), New: newLoc.String(), Fingerprint: engine.Fingerprint()}
		if err := output.WriteDifferencesReport(result, source, cfg.Output.DifferencesFile, cfg.Output.DifferencesFormat); err != nil {
			_ = formatter.Error(err)
			return fmt.Errorf("failed to write differences report: %w", err)
		}
	}

	if code := result.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// newEngine builds the batch engine described by cfg. The returned func
// closes the engine and its cache.
func newEngine(cfg *config.Config, old, new storage.Backend, logger logging.Logger, progress batch.ProgressFunc) (*batch.Engine, func(), error) {
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.CacheOptions(logger)...)
	}

	engine, err := batch.NewEngine(batch.EngineConfig{
		Comparison:        cfg.Comparison,
		Old:               old,
		New:               new,
		Format:            cfg.Storage.DocumentFormat,
		Cache:             resultCache,
		DisableCache:      resultCache == nil,
		Limiter:           ratelimit.NewLimiter(cfg.Performance.BandwidthLimit),
		Logger:            logger,
		Progress:          progress,
		PipelineThreshold: cfg.Performance.PipelineThreshold,
		BufferSize:        cfg.Performance.BufferSize,
	})
	if err != nil {
		if resultCache != nil {
			resultCache.Close()
		}
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return engine, func() {
		engine.Close()
		if resultCache != nil {
			resultCache.Close()
		}
	}, nil
}

func shutdownWithTimeout(stop shutdownFunc, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn(ctx, "telemetry shutdown failed", logging.Fields{"error": err.Error()})
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}
