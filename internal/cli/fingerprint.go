package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/diffnorris/pkg/rules"
)

// NewFingerprintCommand creates the fingerprint command
func NewFingerprintCommand() *cobra.Command {
	var canonical bool

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the comparison configuration fingerprint",
		Long: `Print the fingerprint identifying the comparison settings of the
loaded configuration. Cached results are only reused under the same
fingerprint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rules.Fingerprint(cfg.Comparison))
			if canonical {
				fmt.Fprintln(out, rules.Canonical(cfg.Comparison))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&canonical, "canonical", false, "also print the canonical text the fingerprint is computed over")

	return cmd
}
