package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/pkg/logging"
)

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <group> <action> [key=value ...]",
		Short: "Dispatch a single catalogue command and print its result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			a.connectConfiguredPlugins(cmd.Context())

			spec, err := a.catalogue.Find(args[0], args[1])
			if err != nil {
				return err
			}

			callArgs, err := parseKeyValueArgs(args[2:])
			if err != nil {
				return err
			}

			result, err := a.dispatcher.Dispatch(cmd.Context(), spec, callArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}
