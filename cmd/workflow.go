package cmd

import (
	"github.com/spf13/cobra"

	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/internal/workflow"
	"github.com/giantswarm/bench/pkg/logging"
)

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "List and run declarative workflows",
	}
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowRunCmd())
	return cmd
}

func newWorkflowListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows found under the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			specs, parseErrs := a.surface.LoadWorkflows()
			for _, e := range parseErrs {
				logging.Warn("cmd", "%s", e)
			}
			for _, s := range specs {
				cmd.Println(s.WorkflowID + "\t" + s.Name)
			}
			return nil
		},
	}
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}

func newWorkflowRunCmd() *cobra.Command {
	var inputArgs []string
	cmd := &cobra.Command{
		Use:   "run <workflow-id> [key=value ...]",
		Short: "Run a workflow and print its outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.InitForCLI(debugLevel(), cmd.ErrOrStderr())

			a, err := newApp()
			if err != nil {
				return err
			}
			a.connectConfiguredPlugins(cmd.Context())

			specs, parseErrs := a.surface.LoadWorkflows()
			for _, e := range parseErrs {
				logging.Warn("cmd", "%s", e)
			}

			var target *workflow.WorkflowSpec
			for i := range specs {
				if specs[i].WorkflowID == args[0] {
					target = &specs[i]
					break
				}
			}
			if target == nil {
				return workflowNotFoundErr(args[0])
			}

			all := append(append([]string{}, args[1:]...), inputArgs...)
			inputs, err := parseKeyValueArgs(all)
			if err != nil {
				return err
			}

			runner := workflow.NewRunner(a.planner, a.executor, a.history)
			live := make(chan workflow.Event, 1)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range live {
					if ev.Kind == workflow.EventStepFinished && ev.Result != nil {
						cmd.Printf("step %s: %s\n", ev.Result.ID, ev.Result.Status)
					}
				}
			}()

			outcome, _ := runner.Run(cmd.Context(), *target, nil, inputs, live)
			close(live)
			<-done

			format := cli.OutputFormat(commonFlags.OutputFormat)
			if err := cli.ValidateOutputFormat(string(format)); err != nil {
				return err
			}
			return cli.RenderRunOutcome(cmd.OutOrStdout(), outcome, format, commonFlags.NoHeaders)
		},
	}
	cmd.Flags().StringArrayVar(&inputArgs, "input", nil, "Additional key=value workflow input")
	cli.AddCommonFlags(cmd, &commonFlags)
	return cmd
}
