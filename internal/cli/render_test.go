package cli

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/internal/workflow"
)

func init() {
	// Deterministic table/status output: assertions below match on plain
	// text, not ANSI escape sequences.
	text.DisableColors()
}

func sampleCommands() []registry.CommandSpec {
	return []registry.CommandSpec{
		{Group: "apps", Name: "apps list", Summary: "list apps", Backing: registry.Backing{Kind: registry.BackingHTTP}},
		{Group: "git", Name: "git status", Summary: "git status via plugin", Backing: registry.Backing{Kind: registry.BackingPlugin}},
	}
}

func TestRenderCommandsTableIncludesAllRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCommands(&buf, sampleCommands(), OutputFormatTable, false))
	out := buf.String()
	assert.Contains(t, out, "apps list")
	assert.Contains(t, out, "git status")
	assert.NotContains(t, out, "backing")
}

func TestRenderCommandsWideIncludesBackingColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCommands(&buf, sampleCommands(), OutputFormatWide, false))
	out := buf.String()
	assert.Contains(t, out, "BACKING")
	assert.Contains(t, out, "http")
	assert.Contains(t, out, "plugin")
}

func TestRenderCommandsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCommands(&buf, sampleCommands(), OutputFormatJSON, false))
	assert.Contains(t, buf.String(), `"name": "apps list"`)
}

func TestRenderCommandsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCommands(&buf, sampleCommands(), OutputFormatYAML, false))
	assert.Contains(t, buf.String(), "name: apps list")
}

func TestRenderRunOutcomeTableShowsStatus(t *testing.T) {
	outcome := workflow.RunOutcome{
		Status: workflow.StatusSucceeded,
		Steps: map[string]workflow.StepResult{
			"build": {ID: "build", Status: workflow.StatusSucceeded, Attempts: 1},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderRunOutcome(&buf, outcome, OutputFormatTable, false))
	out := buf.String()
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "run status: succeeded")
}

func TestRenderRunOutcomeJSON(t *testing.T) {
	outcome := workflow.RunOutcome{
		Status: workflow.StatusFailed,
		Steps: map[string]workflow.StepResult{
			"deploy": {ID: "deploy", Status: workflow.StatusFailed, Attempts: 3},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderRunOutcome(&buf, outcome, OutputFormatJSON, false))
	assert.Contains(t, buf.String(), `"status": "failed"`)
}
