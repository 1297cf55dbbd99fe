package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/giantswarm/bench/internal/plugin"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/internal/workflow"
	benchstrings "github.com/giantswarm/bench/pkg/strings"
)

// commandRow is the flattened, JSON/YAML-friendly view of a CommandSpec
// used by every output format so table and structured rendering stay in
// sync.
type commandRow struct {
	Name    string `json:"name" yaml:"name"`
	Group   string `json:"group" yaml:"group"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Backing string `json:"backing" yaml:"backing"`
}

func toCommandRow(c registry.CommandSpec) commandRow {
	return commandRow{
		Name:    c.CanonicalID(),
		Group:   c.Group,
		Summary: c.Summary,
		Backing: string(c.Backing.Kind),
	}
}

// RenderCommands writes commands to out in the requested format. In
// table/wide mode, wide additionally shows the backing column.
func RenderCommands(out io.Writer, commands []registry.CommandSpec, format OutputFormat, noHeaders bool) error {
	rows := make([]commandRow, 0, len(commands))
	for _, c := range commands {
		rows = append(rows, toCommandRow(c))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	switch format {
	case OutputFormatJSON:
		return encodeJSON(out, rows)
	case OutputFormatYAML:
		return encodeYAML(out, rows)
	case OutputFormatWide:
		return renderCommandTable(out, rows, noHeaders, true)
	default:
		return renderCommandTable(out, rows, noHeaders, false)
	}
}

func renderCommandTable(out io.Writer, rows []commandRow, noHeaders, wide bool) error {
	tw := NewPlainTableWriter(out)
	headers := []string{"name", "group", "summary"}
	if wide {
		headers = append(headers, "backing")
	}
	tw.SetHeaders(headers)
	tw.SetNoHeaders(noHeaders)
	for _, r := range rows {
		row := []string{r.Name, r.Group, benchstrings.TruncateDescription(r.Summary, benchstrings.DefaultDescriptionMaxLen)}
		if wide {
			row = append(row, r.Backing)
		}
		tw.AppendRow(row)
	}
	tw.Render()
	return nil
}

// pluginRow is the flattened view of one plugin's session state.
type pluginRow struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

// RenderPluginStates writes the state of each named plugin as reported by
// host to out in the requested format.
func RenderPluginStates(out io.Writer, host *plugin.Host, format OutputFormat, noHeaders bool) error {
	names := host.Names()
	sort.Strings(names)
	rows := make([]pluginRow, 0, len(names))
	for _, name := range names {
		state, _ := host.State(name)
		rows = append(rows, pluginRow{Name: name, State: string(state)})
	}

	switch format {
	case OutputFormatJSON:
		return encodeJSON(out, rows)
	case OutputFormatYAML:
		return encodeYAML(out, rows)
	default:
		tw := NewPlainTableWriter(out)
		tw.SetHeaders([]string{"name", "state"})
		tw.SetNoHeaders(noHeaders)
		for _, r := range rows {
			tw.AppendRow([]string{r.Name, stateLabel(r.State)})
		}
		tw.Render()
		return nil
	}
}

func stateLabel(state string) string {
	icon, colors := "", text.Colors{}
	switch plugin.State(state) {
	case plugin.StateRunning:
		icon, colors = "✓ ", text.Colors{text.FgHiGreen, text.Bold}
	case plugin.StateFailed:
		icon, colors = "✗ ", text.Colors{text.FgHiRed, text.Bold}
	case plugin.StateStarting:
		colors = text.Colors{text.FgHiYellow}
	}
	if IsEmojiDisabled() {
		icon = ""
	}
	return colors.Sprint(icon + state)
}

// emojiDisabled caches whether emoji display is disabled via environment
// variable; set by NO_EMOJI or BENCH_NO_EMOJI.
var emojiDisabled = os.Getenv("NO_EMOJI") != "" || os.Getenv("BENCH_NO_EMOJI") != ""

// IsEmojiDisabled reports whether icon rendering is disabled.
func IsEmojiDisabled() bool { return emojiDisabled }

// stepRow is the flattened view of one workflow step's outcome.
type stepRow struct {
	ID       string `json:"id" yaml:"id"`
	Status   string `json:"status" yaml:"status"`
	Attempts int    `json:"attempts" yaml:"attempts"`
}

// RenderRunOutcome writes a completed workflow run's per-step results to
// out in the requested format.
func RenderRunOutcome(out io.Writer, outcome workflow.RunOutcome, format OutputFormat, noHeaders bool) error {
	ids := make([]string, 0, len(outcome.Steps))
	for id := range outcome.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]stepRow, 0, len(ids))
	for _, id := range ids {
		r := outcome.Steps[id]
		rows = append(rows, stepRow{ID: r.ID, Status: string(r.Status), Attempts: r.Attempts})
	}

	switch format {
	case OutputFormatJSON:
		return encodeJSON(out, struct {
			Status string    `json:"status"`
			Steps  []stepRow `json:"steps"`
		}{Status: string(outcome.Status), Steps: rows})
	case OutputFormatYAML:
		return encodeYAML(out, struct {
			Status string    `yaml:"status"`
			Steps  []stepRow `yaml:"steps"`
		}{Status: string(outcome.Status), Steps: rows})
	default:
		tw := NewPlainTableWriter(out)
		tw.SetHeaders([]string{"step", "status", "attempts"})
		tw.SetNoHeaders(noHeaders)
		for _, r := range rows {
			tw.AppendRow([]string{r.ID, stepStatusLabel(r.Status), fmt.Sprintf("%d", r.Attempts)})
		}
		tw.Render()
		fmt.Fprintf(out, "\nrun status: %s\n", stepStatusLabel(string(outcome.Status)))
		return nil
	}
}

func stepStatusLabel(status string) string {
	switch workflow.StepStatus(status) {
	case workflow.StatusSucceeded:
		return text.Colors{text.FgHiGreen, text.Bold}.Sprint(status)
	case workflow.StatusFailed:
		return text.Colors{text.FgHiRed, text.Bold}.Sprint(status)
	default:
		return status
	}
}

func encodeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(out io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(v)
}

