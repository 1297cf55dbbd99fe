package workflow

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/giantswarm/bench/internal/registry"
)

// InternalCommandGroup is the catalogue group FEATURE_WORKFLOWS exposes
// loaded workflows under, alongside the REPL's and cmd/workflow.go's
// dedicated "workflow run" verb.
const InternalCommandGroup = "workflow"

// SynthesizeCommand builds the Internal-backed CommandSpec that exposes
// spec as "workflow <workflow-id>", flags derived from its declared
// inputs, so it is callable through CommandDispatcher (e.g. "call
// workflow <id> region=eu") like any REST or plugin command.
func SynthesizeCommand(spec WorkflowSpec) registry.CommandSpec {
	names := make([]string, 0, len(spec.Inputs))
	for name := range spec.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	flags := make([]registry.Flag, 0, len(names))
	for _, name := range names {
		def := spec.Inputs[name]
		flags = append(flags, registry.Flag{
			Name:     name,
			Required: def.Required,
			Type:     registry.TypeString,
			Default:  def.Default,
		})
	}

	return registry.CommandSpec{
		Group:   InternalCommandGroup,
		Name:    InternalCommandGroup + " " + spec.WorkflowID,
		Summary: spec.Name,
		Flags:   flags,
		Backing: registry.Backing{Kind: registry.BackingInternal},
	}
}

// Handler returns the closure that, once registered against a
// CommandDispatcher under SynthesizeCommand(spec)'s canonical id, runs
// spec through runner with the dispatched args as explicit inputs. The
// returned func matches dispatch.InternalHandler's signature structurally
// so this package never imports internal/dispatch.
func Handler(spec WorkflowSpec, runner *Runner) func(ctx context.Context, args map[string]interface{}) (json.RawMessage, error) {
	return func(ctx context.Context, args map[string]interface{}) (json.RawMessage, error) {
		resolved, err := ResolveInputs(spec, args, nil)
		if err != nil {
			return nil, err
		}
		outcome, _ := runner.Run(ctx, spec, nil, resolved, nil)
		return json.Marshal(outcome)
	}
}
