package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/pkg/logging"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune recorded workflow runs",
	}
	cmd.AddCommand(newHistoryLastCmd())
	cmd.AddCommand(newHistoryPurgeCmd())
	return cmd
}

func newHistoryLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last <workflow-id>",
		Short: "Print the inputs of the most recent run of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			inputs, ok := a.history.LastInputs(args[0])
			if !ok {
				return apperr.NotFoundf("workflow run", args[0])
			}
			return printJSON(cmd.OutOrStdout(), mustMarshal(inputs))
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}

func newHistoryPurgeCmd() *cobra.Command {
	var fingerprints []string
	cmd := &cobra.Command{
		Use:   "purge <workflow-id>",
		Short: "Delete recorded runs for a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			return a.history.Purge(args[0], fingerprints)
		},
	}
	cmd.Flags().StringArrayVar(&fingerprints, "fingerprint", nil, "Limit the purge to specific run fingerprints")
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}
