package registry

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeCommandsBuildsFlagsFromSchema(t *testing.T) {
	tools := []mcp.Tool{
		{
			Name:        "clone",
			Description: "clone a repository",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "repository url",
					},
					"depth": map[string]interface{}{
						"type": "number",
					},
					"strategy": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"shallow", "full"},
					},
				},
				Required: []string{"url"},
			},
		},
	}

	specs := SynthesizeCommands("git", tools)
	require.Len(t, specs, 1)

	spec := specs[0]
	assert.Equal(t, "git", spec.Group)
	assert.Equal(t, "git clone", spec.Name)
	assert.Equal(t, BackingPlugin, spec.Backing.Kind)
	assert.Equal(t, "git", spec.Backing.PluginID)
	assert.Equal(t, "clone", spec.Backing.ToolName)

	url, ok := spec.FlagByName("url")
	require.True(t, ok)
	assert.True(t, url.Required)
	assert.Equal(t, TypeString, url.Type)

	depth, ok := spec.FlagByName("depth")
	require.True(t, ok)
	assert.False(t, depth.Required)
	assert.Equal(t, TypeNumber, depth.Type)

	strategy, ok := spec.FlagByName("strategy")
	require.True(t, ok)
	assert.Equal(t, TypeEnum, strategy.Type)
	assert.Equal(t, []string{"shallow", "full"}, strategy.EnumValues)
}
