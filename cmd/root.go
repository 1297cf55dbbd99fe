package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/internal/repl"
	"github.com/giantswarm/bench/pkg/logging"
)

var commonFlags cli.CommandFlags

// rootCmd is the entry point when bench is invoked with no subcommand:
// it launches the interactive workbench.
var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "Interactive workbench for the platform API",
	Long: `bench is a terminal workbench over a hosted platform's REST API:
a typed command catalogue, declarative multi-step workflows, and MCP
plugin federation, usable either as a single-shot CLI or as an
interactive REPL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd)
	},
}

// SetVersion sets the version for the root command. Called from main
// to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and maps any returned error onto an
// exit code, following internal/apperr's category taxonomy.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "bench version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(getExitCode(err))
	}
}

// getExitCode delegates to cli.ExitCodeFor, which maps apperr's
// Validation category to a usage-error exit code and everything else
// to a general runtime-error exit code.
func getExitCode(err error) int {
	return cli.ExitCodeFor(err)
}

func init() {
	cli.AddCommonFlags(rootCmd, &commonFlags)
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newWorkflowCmd())
	rootCmd.AddCommand(newPluginCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func runREPL(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	logChan := logging.InitForREPL(debugLevel(), 256)
	a.connectConfiguredPlugins(cmd.Context())

	r := repl.New(repl.Deps{
		Catalogue:  a.catalogue,
		Dispatcher: a.dispatcher,
		Resolver:   a.resolver,
		Planner:    a.planner,
		Executor:   a.executor,
		History:    a.history,
		Plugins:    a.plugins,
		Surface:    a.surface,
		LogChan:    logChan,
		Quiet:      commonFlags.Quiet,
	})
	return r.Run(cmd.Context())
}

func debugLevel() logging.LogLevel {
	if commonFlags.Debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}
