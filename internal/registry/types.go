// Package registry holds the typed, in-memory catalogue of commands the
// workbench can invoke: REST commands derived from the platform's
// OpenAPI/hyper-schema description, plus commands synthesized from MCP
// plugin tools.
package registry

import "strings"

// ArgType is the declared type of a positional argument or flag.
type ArgType string

const (
	TypeString  ArgType = "string"
	TypeNumber  ArgType = "number"
	TypeBoolean ArgType = "boolean"
	TypeEnum    ArgType = "enum"
	TypeObject  ArgType = "object"
	TypeArray   ArgType = "array"
)

// PositionalArg is one ordered path/positional argument of a command.
type PositionalArg struct {
	Name     string
	Help     string
	Provider string // provider id that supplies legal values, if any
}

// Flag is one named, possibly-required argument of a command.
type Flag struct {
	Name        string
	Short       string
	Required    bool
	Type        ArgType
	EnumValues  []string
	Default     interface{}
	Description string
	Provider    string
}

// BackingKind tags the closed set of ways a CommandSpec can be dispatched.
type BackingKind string

const (
	BackingHTTP     BackingKind = "http"
	BackingPlugin   BackingKind = "plugin"
	BackingInternal BackingKind = "internal"
)

// Backing is a tagged variant: exactly one of the HTTP/Plugin/Internal
// fields is meaningful, selected by Kind. The set of backings is closed
// deliberately (see spec design notes) — dispatch is a switch on Kind,
// never open-ended polymorphism.
type Backing struct {
	Kind BackingKind

	// Kind == BackingHTTP
	Method         string
	PathTemplate   string
	ServiceID      string

	// Kind == BackingPlugin
	PluginID string
	ToolName string
}

// EqualityKey identifies backings that should be considered the "same
// command" for dedup purposes (see CommandCatalogue.InsertSynthetic).
func (b Backing) EqualityKey() string {
	switch b.Kind {
	case BackingHTTP:
		return "http:" + strings.ToUpper(b.Method) + " " + b.PathTemplate
	case BackingPlugin:
		return "plugin:" + b.PluginID + " " + b.ToolName
	default:
		return "internal"
	}
}

// CommandSpec is an immutable (after registry load) description of one
// invocable command.
type CommandSpec struct {
	Group       string
	Name        string // full id in "group action" form, e.g. "apps list"
	Summary     string
	Description string

	PositionalArgs []PositionalArg
	Flags          []Flag

	Backing Backing
}

// CanonicalID returns "<group> <name>", unique within a catalogue.
func (c CommandSpec) CanonicalID() string {
	return c.Group + " " + strings.TrimPrefix(c.Name, c.Group+" ")
}

// FlagByName returns the flag with the given name, if present.
func (c CommandSpec) FlagByName(name string) (Flag, bool) {
	for _, f := range c.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}
