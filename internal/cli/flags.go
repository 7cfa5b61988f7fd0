package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile  string
	Verbose     bool
	Quiet       bool
	TraceFile   string
	MetricsAddr string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/diffnorris/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output (progress bar, debug logging)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
	cmd.PersistentFlags().StringVar(
		&globalFlags.TraceFile,
		"trace-file",
		"",
		"write OpenTelemetry spans to this file",
	)
	cmd.PersistentFlags().StringVar(
		&globalFlags.MetricsAddr,
		"metrics-addr",
		"",
		"serve Prometheus metrics on this address while running (e.g. \":9090\")",
	)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}
