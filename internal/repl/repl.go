package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/cli"
	"github.com/giantswarm/bench/internal/config"
	"github.com/giantswarm/bench/internal/dispatch"
	"github.com/giantswarm/bench/internal/history"
	"github.com/giantswarm/bench/internal/plugin"
	"github.com/giantswarm/bench/internal/provider"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/internal/workflow"
	"github.com/giantswarm/bench/pkg/logging"
)

const promptString = "bench > "

// commandExecutionTimeout bounds a single REPL command's run, long
// enough for a slow plugin tool call without hanging the session forever.
const commandExecutionTimeout = 5 * time.Minute

// REPL is the interactive terminal workbench: a readline prompt wired
// to the command catalogue, dispatcher, provider resolver, workflow
// runner, and plugin host built by cmd's root setup.
type REPL struct {
	catalogue  *registry.CommandCatalogue
	dispatcher *dispatch.Dispatcher
	resolver   *provider.Resolver
	planner    *workflow.Planner
	executor   *workflow.Executor
	history    *history.Store
	plugins    *plugin.Host
	surface    *config.Surface

	rl          *readline.Instance
	logChan     <-chan logging.LogEntry
	configWatch *config.Watcher
	stopChan    chan struct{}
	wg          sync.WaitGroup
	quiet       bool
}

// Deps bundles the collaborators a REPL session dispatches through.
type Deps struct {
	Catalogue  *registry.CommandCatalogue
	Dispatcher *dispatch.Dispatcher
	Resolver   *provider.Resolver
	Planner    *workflow.Planner
	Executor   *workflow.Executor
	History    *history.Store
	Plugins    *plugin.Host
	Surface    *config.Surface
	LogChan    <-chan logging.LogEntry
	Quiet      bool
}

// New builds a REPL ready to Run.
func New(d Deps) *REPL {
	return &REPL{
		catalogue:  d.Catalogue,
		dispatcher: d.Dispatcher,
		resolver:   d.Resolver,
		planner:    d.Planner,
		executor:   d.Executor,
		history:    d.History,
		plugins:    d.Plugins,
		surface:    d.Surface,
		logChan:    d.LogChan,
		stopChan:   make(chan struct{}),
		quiet:      d.Quiet,
	}
}

// Run starts the readline loop and blocks until ctx is cancelled, the
// user runs "exit", or input hits EOF.
func (r *REPL) Run(ctx context.Context) error {
	historyFile := filepath.Join(os.TempDir(), ".bench_history")

	rlConfig := &readline.Config{
		Prompt:              promptString,
		HistoryFile:         historyFile,
		AutoComplete:        r.buildCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	r.rl = rl

	if r.logChan != nil {
		r.wg.Add(1)
		go r.drainLogs()
	}

	if r.surface != nil {
		events := make(chan config.ChangeEvent, 8)
		if watcher, err := r.surface.Watch(events); err == nil {
			r.configWatch = watcher
			r.wg.Add(1)
			go r.drainConfigChanges(events)
		} else {
			logging.Warn("repl", "config watcher disabled: %v", err)
		}
	}

	fmt.Fprintln(rl.Stdout(), "bench interactive workbench. Type 'help' for available commands.")

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
			continue
		} else if err == io.EOF {
			r.shutdown()
			fmt.Fprintln(rl.Stdout(), "Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := r.execute(ctx, input); err != nil {
			if err.Error() == "exit" {
				r.shutdown()
				fmt.Fprintln(rl.Stdout(), "Goodbye!")
				return nil
			}
			fmt.Fprintln(rl.Stdout(), cli.FormatError(err))
		}
		fmt.Fprintln(rl.Stdout())
	}
}

func (r *REPL) shutdown() {
	if r.configWatch != nil {
		r.configWatch.Close()
	}
	if r.logChan != nil || r.configWatch != nil {
		close(r.stopChan)
		r.wg.Wait()
	}
}

// drainConfigChanges reloads tab-completion data (workflow ids, plugin
// names) when mcp.json or the workflows directory changes on disk, so
// edits made outside the session take effect without a restart.
func (r *REPL) drainConfigChanges(events <-chan config.ChangeEvent) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopChan:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if r.rl != nil {
				r.rl.Config.AutoComplete = r.buildCompleter()
				if !r.quiet {
					r.rl.Stdout().Write([]byte("\r\033[K"))
					fmt.Fprintf(r.rl.Stdout(), "[config] reloaded after change to %s\n", ev.Path)
					r.rl.Refresh()
				}
			}
		}
	}
}

// drainLogs prints ambient log entries without corrupting the current
// readline prompt, pausing it for the duration of each line.
func (r *REPL) drainLogs() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopChan:
			return
		case entry, ok := <-r.logChan:
			if !ok {
				return
			}
			if r.quiet && entry.Level < logging.LevelWarn {
				continue
			}
			if r.rl != nil {
				r.rl.Stdout().Write([]byte("\r\033[K"))
				fmt.Fprintf(r.rl.Stdout(), "[%s] %s: %s\n", entry.Level, entry.Subsystem, entry.Message)
				r.rl.Refresh()
			}
		}
	}
}

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// execute parses one line of input and dispatches it to the matching
// subcommand handler.
func (r *REPL) execute(ctx context.Context, input string) error {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]

	cmdCtx, cancel := context.WithTimeout(ctx, commandExecutionTimeout)
	defer cancel()

	switch name {
	case "help", "?":
		r.printHelp()
		return nil
	case "exit", "quit":
		return fmt.Errorf("exit")
	case "list":
		return r.cmdList(args)
	case "call":
		return r.cmdCall(cmdCtx, args)
	case "workflow":
		return r.cmdWorkflow(cmdCtx, args)
	case "plugin":
		return r.cmdPlugin(cmdCtx, args)
	case "history":
		return r.cmdHistory(args)
	case "suggest":
		return r.cmdSuggest(cmdCtx, args)
	default:
		return apperr.Validationf("repl", "unknown_command", "unknown command %q, type 'help' for available commands", fields[0])
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.rl.Stdout(), `Available commands:
  list                              list every command in the catalogue
  call <group action> [k=v ...]     dispatch one command
  workflow list                     list loaded workflow manifests
  workflow run <id> [k=v ...]       run a workflow to completion
  plugin list                       show plugin connection states
  plugin connect <name>             spawn/connect a configured plugin
  plugin disconnect <name>          stop a connected plugin
  plugin logs <name>                show the plugin's captured stderr
  history last <workflow-id>        show the last inputs used for a workflow
  suggest <provider-id> [k=v ...]   fetch provider-backed completion values
  exit                              leave the workbench`)
}

func (r *REPL) cmdList(args []string) error {
	format := cli.OutputFormatTable
	if len(args) > 0 {
		format = cli.OutputFormat(args[0])
		if err := cli.ValidateOutputFormat(string(format)); err != nil {
			return err
		}
	}
	return cli.RenderCommands(r.rl.Stdout(), r.catalogue.All(), format, false)
}

func (r *REPL) cmdCall(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperr.Validationf("repl", "usage", "usage: call <group> <action> [key=value ...]")
	}
	canonical := args[0] + " " + args[1]
	spec, err := r.catalogue.Lookup(canonical)
	if err != nil {
		return err
	}

	callArgs, err := parseKeyValueArgs(args[2:])
	if err != nil {
		return err
	}

	result, err := r.withSpinner(fmt.Sprintf("dispatching %s", canonical), func() (json.RawMessage, error) {
		return r.dispatcher.Dispatch(ctx, spec, callArgs)
	})
	if err != nil {
		return err
	}

	return printJSON(r.rl.Stdout(), result)
}

func (r *REPL) cmdWorkflow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperr.Validationf("repl", "usage", "usage: workflow list | workflow run <id> [key=value ...]")
	}

	switch args[0] {
	case "list":
		if r.surface == nil {
			return apperr.Validationf("repl", "no_surface", "no config surface configured")
		}
		specs, errs := r.surface.LoadWorkflows()
		for _, e := range errs {
			fmt.Fprintln(r.rl.Stdout(), cli.FormatError(e))
		}
		for _, s := range specs {
			fmt.Fprintf(r.rl.Stdout(), "%s\t%s\n", s.WorkflowID, s.Name)
		}
		return nil
	case "run":
		return r.cmdWorkflowRun(ctx, args[1:])
	default:
		return apperr.Validationf("repl", "usage", "usage: workflow list | workflow run <id> [key=value ...]")
	}
}

func (r *REPL) cmdWorkflowRun(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperr.Validationf("repl", "usage", "usage: workflow run <id> [key=value ...]")
	}
	id := args[0]
	inputs, err := parseKeyValueArgs(args[1:])
	if err != nil {
		return err
	}

	if r.surface == nil {
		return apperr.Validationf("repl", "no_surface", "no config surface configured")
	}
	specs, _ := r.surface.LoadWorkflows()
	var target *workflow.WorkflowSpec
	for i := range specs {
		if specs[i].WorkflowID == id {
			target = &specs[i]
			break
		}
	}
	if target == nil {
		return apperr.NotFoundf("workflow", id)
	}

	var sink workflow.HistorySink
	if r.history != nil {
		sink = r.history
	}
	runner := workflow.NewRunner(r.planner, r.executor, sink)

	live := make(chan workflow.Event, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range live {
			if ev.Kind == workflow.EventStepFinished && ev.Result != nil {
				fmt.Fprintf(r.rl.Stdout(), "  %s: %s\n", ev.Result.ID, ev.Result.Status)
			}
		}
	}()

	outcome, _ := runner.Run(ctx, *target, nil, inputs, live)
	close(live)
	<-done

	return cli.RenderRunOutcome(r.rl.Stdout(), outcome, cli.OutputFormatTable, false)
}

func (r *REPL) cmdPlugin(ctx context.Context, args []string) error {
	if r.plugins == nil {
		return apperr.Validationf("repl", "no_plugin_host", "no plugin host configured")
	}
	if len(args) == 0 {
		return apperr.Validationf("repl", "usage", "usage: plugin list | connect <name> | disconnect <name> | logs <name>")
	}

	switch args[0] {
	case "list":
		return cli.RenderPluginStates(r.rl.Stdout(), r.plugins, cli.OutputFormatTable, false)
	case "connect":
		if len(args) < 2 {
			return apperr.Validationf("repl", "usage", "usage: plugin connect <name>")
		}
		if r.surface == nil {
			return apperr.Validationf("repl", "no_surface", "no config surface configured")
		}
		cfgs, err := r.surface.LoadMCPConfig()
		if err != nil {
			return err
		}
		cfg, ok := cfgs[args[1]]
		if !ok {
			return apperr.NotFoundf("plugin config", args[1])
		}
		_, err = r.withSpinner(fmt.Sprintf("connecting %s", args[1]), func() (json.RawMessage, error) {
			return nil, r.plugins.Connect(ctx, cfg)
		})
		return err
	case "disconnect":
		if len(args) < 2 {
			return apperr.Validationf("repl", "usage", "usage: plugin disconnect <name>")
		}
		return r.plugins.Disconnect(args[1])
	case "logs":
		if len(args) < 2 {
			return apperr.Validationf("repl", "usage", "usage: plugin logs <name>")
		}
		lines, err := r.plugins.Logs(args[1])
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(r.rl.Stdout(), line)
		}
		return nil
	default:
		return apperr.Validationf("repl", "usage", "usage: plugin list | connect <name> | disconnect <name> | logs <name>")
	}
}

// cmdSuggest fetches provider-backed values synchronously through
// Resolver.FetchSync on the command's own goroutine.
func (r *REPL) cmdSuggest(ctx context.Context, args []string) error {
	if r.resolver == nil {
		return apperr.Validationf("repl", "no_resolver", "no provider resolver configured")
	}
	if len(args) == 0 {
		return apperr.Validationf("repl", "usage", "usage: suggest <provider-id> [key=value ...]")
	}
	providerArgs, err := parseKeyValueArgs(args[1:])
	if err != nil {
		return err
	}
	items, err := r.resolver.FetchSync(ctx, args[0], providerArgs)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Fprintf(r.rl.Stdout(), "%s\t%s\n", item.Value, item.Label)
	}
	return nil
}

func (r *REPL) cmdHistory(args []string) error {
	if r.history == nil {
		return apperr.Validationf("repl", "no_history", "no history store configured")
	}
	if len(args) < 2 || args[0] != "last" {
		return apperr.Validationf("repl", "usage", "usage: history last <workflow-id>")
	}
	inputs, ok := r.history.LastInputs(args[1])
	if !ok {
		fmt.Fprintln(r.rl.Stdout(), "no recorded runs for that workflow")
		return nil
	}
	return printJSON(r.rl.Stdout(), mustMarshal(inputs))
}

// withSpinner runs fn with a terminal spinner shown while it is in
// flight, unless the session was started quiet.
func (r *REPL) withSpinner(label string, fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	if r.quiet {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + label
	s.Start()
	defer s.Stop()
	return fn()
}

func parseKeyValueArgs(args []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return nil, apperr.Validationf("repl", "bad_arg", "argument %q must be key=value", a)
		}
		out[parts[0]] = coerceScalar(parts[1])
	}
	return out, nil
}

func coerceScalar(v string) interface{} {
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func printJSON(out io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		_, err := fmt.Fprintln(out, string(raw))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
