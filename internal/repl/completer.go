package repl

import (
	"strings"

	"github.com/chzyer/readline"
)

// buildCompleter constructs a readline prefix completer over the fixed
// REPL verbs and the catalogue's current command names, so completion
// for "call <tab>" reflects commands synthesized by plugins connected
// earlier in the session.
func (r *REPL) buildCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("list"),
		readline.PcItem("call", r.commandNameItems()...),
		readline.PcItem("workflow",
			readline.PcItem("list"),
			readline.PcItem("run", r.workflowIDItems()...),
		),
		readline.PcItem("plugin",
			readline.PcItem("list"),
			readline.PcItem("connect", r.pluginNameItems()...),
			readline.PcItem("disconnect", r.pluginNameItems()...),
			readline.PcItem("logs", r.pluginNameItems()...),
		),
		readline.PcItem("history", readline.PcItem("last", r.workflowIDItems()...)),
	)
}

func (r *REPL) commandNameItems() []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, spec := range r.catalogue.All() {
		group, action, ok := strings.Cut(spec.CanonicalID(), " ")
		if !ok {
			continue
		}
		items = append(items, readline.PcItem(group, readline.PcItem(action)))
	}
	return items
}

func (r *REPL) workflowIDItems() []readline.PrefixCompleterInterface {
	if r.surface == nil {
		return nil
	}
	specs, _ := r.surface.LoadWorkflows()
	items := make([]readline.PrefixCompleterInterface, 0, len(specs))
	for _, s := range specs {
		items = append(items, readline.PcItem(s.WorkflowID))
	}
	return items
}

func (r *REPL) pluginNameItems() []readline.PrefixCompleterInterface {
	if r.plugins == nil {
		return nil
	}
	names := r.plugins.Names()
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, n := range names {
		items = append(items, readline.PcItem(n))
	}
	return items
}
