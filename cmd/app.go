package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/giantswarm/bench/internal/config"
	"github.com/giantswarm/bench/internal/contract"
	"github.com/giantswarm/bench/internal/dispatch"
	"github.com/giantswarm/bench/internal/history"
	"github.com/giantswarm/bench/internal/plugin"
	"github.com/giantswarm/bench/internal/provider"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/internal/workflow"
	"github.com/giantswarm/bench/pkg/logging"
)

// app bundles every collaborator a command needs, built once per process
// from the on-disk config surface and the active catalog selection.
type app struct {
	surface    *config.Surface
	catalogue  *registry.CommandCatalogue
	contracts  *contract.Store
	dispatcher *dispatch.Dispatcher
	resolver   *provider.Resolver
	planner    *workflow.Planner
	executor   *workflow.Executor
	history    *history.Store
	plugins    *plugin.Host
}

// newApp wires every collaborator a command needs, rooted at --config,
// REGISTRY_CONFIG_PATH, or config.DefaultDir in that order.
func newApp() (*app, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	surface := config.New(dir, nil)

	sel, err := surface.LoadRegistrySelection()
	if err != nil {
		return nil, err
	}
	base, err := surface.LoadCatalogue(sel.ActiveCatalogSlug)
	if err != nil {
		return nil, err
	}

	catalogue := registry.NewCatalogue(base)
	contracts := contract.NewStore(catalogue)
	plugins := plugin.NewHost(catalogue)

	apiBase := commonFlags.Endpoint
	if apiBase == "" {
		apiBase = os.Getenv(config.EnvAPIBase)
	}
	disp := dispatch.New(apiBase, config.EnvTokenSource{}, plugins)

	resolver := provider.New(catalogue, contracts, disp, plugins)
	planner := workflow.NewPlanner(catalogue)
	executor := workflow.NewExecutor(catalogue, disp)
	hist := history.New(filepath.Join(dir, "history"))

	if config.FeatureWorkflowsEnabled() {
		registerWorkflowCommands(surface, catalogue, disp, workflow.NewRunner(planner, executor, hist))
	}

	return &app{
		surface:    surface,
		catalogue:  catalogue,
		contracts:  contracts,
		dispatcher: disp,
		resolver:   resolver,
		planner:    planner,
		executor:   executor,
		history:    hist,
		plugins:    plugins,
	}, nil
}

// registerWorkflowCommands exposes every loaded workflow as a first-class
// Internal-backed catalogue command ("workflow <id>"), dispatched through
// runner, when FEATURE_WORKFLOWS is enabled. This sits alongside, not in
// place of, the dedicated "workflow run" verb in cmd/workflow.go and the
// REPL.
func registerWorkflowCommands(surface *config.Surface, catalogue *registry.CommandCatalogue, disp *dispatch.Dispatcher, runner *workflow.Runner) {
	specs, parseErrs := surface.LoadWorkflows()
	for _, e := range parseErrs {
		logging.Warn("cmd", "%s", e)
	}

	commands := make([]registry.CommandSpec, 0, len(specs))
	for _, spec := range specs {
		cmd := workflow.SynthesizeCommand(spec)
		commands = append(commands, cmd)
		disp.RegisterInternal(cmd.CanonicalID(), workflow.Handler(spec, runner))
	}
	catalogue.InsertSynthetic(commands)
}

func configDir() (string, error) {
	if commonFlags.ConfigPath != "" {
		return commonFlags.ConfigPath, nil
	}
	if dir := os.Getenv(config.EnvRegistryConfigDir); dir != "" {
		return dir, nil
	}
	return config.DefaultDir()
}

// connectConfiguredPlugins connects every plugin named in mcp.json, so
// plugin-backed commands and providers are available before the first
// subcommand runs. A single plugin failing to connect is logged by the
// host and otherwise does not block the others.
func (a *app) connectConfiguredPlugins(ctx context.Context) {
	configs, err := a.surface.LoadMCPConfig()
	if err != nil {
		return
	}
	for _, cfg := range configs {
		_ = a.plugins.Connect(ctx, cfg)
	}
}
