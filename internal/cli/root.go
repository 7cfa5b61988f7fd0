package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the diffnorris command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "diffnorris",
		Short: "Structural comparison of document corpora",
		Long: `diffnorris compares JSON, XML and YAML documents structurally and
reports categorized differences. It compares whole corpora of document
pairs in parallel, adapting to host load, and caches results per
configuration fingerprint.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewFingerprintCommand())
	rootCmd.AddCommand(NewExpandCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
