package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/pkg/logging"
)

func newPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage connected MCP plugins",
	}
	cmd.AddCommand(newPluginListCmd())
	cmd.AddCommand(newPluginConnectCmd())
	cmd.AddCommand(newPluginDisconnectCmd())
	cmd.AddCommand(newPluginLogsCmd())
	return cmd
}

func newPluginListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured plugins and their connection state",
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
			return cli.RenderPluginStates(cmd.OutOrStdout(), a.plugins, format, commonFlags.NoHeaders)
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}

func newPluginConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <name>",
		Short: "Connect a plugin named in mcp.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			configs, err := a.surface.LoadMCPConfig()
			if err != nil {
				return err
			}
			cfg, ok := configs[args[0]]
			if !ok {
				return apperr.NotFoundf("plugin config", args[0])
			}
			return a.plugins.Connect(cmd.Context(), cfg)
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}

func newPluginDisconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect <name>",
		Short: "Disconnect a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			a.connectConfiguredPlugins(cmd.Context())
			return a.plugins.Disconnect(args[0])
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}

func newPluginLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <name>",
		Short: "Print a connected plugin's retained stderr lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			a.connectConfiguredPlugins(cmd.Context())

			lines, err := a.plugins.Logs(args[0])
			if err != nil {
				return err
			}
			cmd.Println(strings.Join(lines, "\n"))
			return nil
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}
