package registry

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultProviderContractFields names the return fields a provider
// contract is synthesized with when the originating command does not
// declare its own return shape. internal/contract tags these as the
// item's identifier and display name respectively.
var DefaultProviderContractFields = []string{"id", "name"}

// SynthesizeCommands converts a plugin's discovered tools into
// CommandSpecs contributed to the catalogue under that plugin's group.
func SynthesizeCommands(pluginName string, tools []mcp.Tool) []CommandSpec {
	specs := make([]CommandSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, synthesizeOne(pluginName, tool))
	}
	return specs
}

func synthesizeOne(pluginName string, tool mcp.Tool) CommandSpec {
	required := make(map[string]bool, len(tool.InputSchema.Required))
	for _, r := range tool.InputSchema.Required {
		required[r] = true
	}

	propNames := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	flags := make([]Flag, 0, len(propNames))
	for _, name := range propNames {
		flags = append(flags, flagFromSchemaProperty(name, tool.InputSchema.Properties[name], required[name]))
	}

	return CommandSpec{
		Group:       pluginName,
		Name:        fmt.Sprintf("%s %s", pluginName, tool.Name),
		Summary:     tool.Description,
		Description: tool.Description,
		Flags:       flags,
		Backing: Backing{
			Kind:     BackingPlugin,
			PluginID: pluginName,
			ToolName: tool.Name,
		},
	}
}

func flagFromSchemaProperty(name string, raw interface{}, required bool) Flag {
	f := Flag{Name: name, Required: required, Type: TypeString}

	prop, ok := raw.(map[string]interface{})
	if !ok {
		return f
	}

	if desc, ok := prop["description"].(string); ok {
		f.Description = desc
	}
	if def, ok := prop["default"]; ok {
		f.Default = def
	}
	if schemaType, ok := prop["type"].(string); ok {
		f.Type = argTypeFromSchemaType(schemaType)
	}
	if rawEnum, ok := prop["enum"].([]interface{}); ok {
		f.Type = TypeEnum
		for _, v := range rawEnum {
			if s, ok := v.(string); ok {
				f.EnumValues = append(f.EnumValues, s)
			} else {
				f.EnumValues = append(f.EnumValues, fmt.Sprintf("%v", v))
			}
		}
	}
	return f
}

func argTypeFromSchemaType(schemaType string) ArgType {
	switch schemaType {
	case "number", "integer":
		return TypeNumber
	case "boolean":
		return TypeBoolean
	case "object":
		return TypeObject
	case "array":
		return TypeArray
	default:
		return TypeString
	}
}
