package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdejongh/diffnorris/pkg/config"
	"github.com/sdejongh/diffnorris/pkg/rules"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the diffnorris configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			}

			fmt.Fprintf(out, "Fingerprint: %s\n", rules.Fingerprint(cfg.Comparison))
			fmt.Fprintf(out, "Max Differences: %d\n", cfg.Comparison.MaxDifferences)
			fmt.Fprintf(out, "Case Sensitive: %t\n", cfg.Comparison.CaseSensitive)
			fmt.Fprintf(out, "Compare Read-Only Fields: %t\n", cfg.Comparison.CompareReadOnlyFields)
			fmt.Fprintf(out, "Ignore Order Globally: %t\n", cfg.Comparison.IgnoreCollectionOrderGlobally)
			fmt.Fprintf(out, "Rules: %d\n", len(cfg.Comparison.Rules))
			fmt.Fprintf(out, "Cache: enabled=%t ttl=%s max_entries=%d\n", cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxEntries)
			fmt.Fprintf(out, "Pipeline Threshold: %d\n", cfg.Performance.PipelineThreshold)
			fmt.Fprintf(out, "Document Format: %s\n", cfg.Storage.DocumentFormat)
			fmt.Fprintf(out, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(out, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the full configuration as YAML")

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}
