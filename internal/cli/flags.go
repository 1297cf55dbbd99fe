package cli

import "github.com/spf13/cobra"

// CommandFlags holds the common flag values shared across commands that
// dispatch against the platform or render catalogue/run data.
type CommandFlags struct {
	// OutputFormat selects table, wide, json, or yaml rendering.
	OutputFormat string
	// NoHeaders suppresses the header row in table/wide output.
	NoHeaders bool
	// Quiet suppresses progress spinners and non-essential output.
	Quiet bool
	// Debug enables verbose logging of dispatch and plugin traffic.
	Debug bool
	// ConfigPath overrides the user config directory.
	ConfigPath string
	// Endpoint overrides BENCH_API_BASE for this invocation.
	Endpoint string
}

// AddCommonFlags registers the CommandFlags fields on cmd, binding them
// into flags for population by cobra.
func AddCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable),
		"Output format: "+joinFormats())
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress table header row")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress indicators")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Log dispatch and plugin traffic verbosely")
	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "Override the user config directory")
	cmd.Flags().StringVar(&flags.Endpoint, "endpoint", "", "Override the platform API base URL")
}
