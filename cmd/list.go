package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/pkg/logging"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every command in the active catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			a.connectConfiguredPlugins(cmd.Context())

			format := cli.OutputFormat(commonFlags.OutputFormat)
			if err := cli.ValidateOutputFormat(string(format)); err != nil {
				return err
			}
			return cli.RenderCommands(cmd.OutOrStdout(), a.catalogue.All(), format, commonFlags.NoHeaders)
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}
