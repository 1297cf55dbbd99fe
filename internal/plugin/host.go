package plugin

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/pkg/logging"
)

// Host manages the set of connected plugins, keeping CommandCatalogue in
// sync with each plugin's tool list as it connects and disconnects.
type Host struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	catalogue *registry.CommandCatalogue
}

// NewHost builds a Host whose connects/disconnects mutate catalogue's
// synthetic commands.
func NewHost(catalogue *registry.CommandCatalogue) *Host {
	return &Host{sessions: make(map[string]*session), catalogue: catalogue}
}

func (h *Host) sessionFor(name string) (*session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[name]
	return s, ok
}

// Connect registers cfg (if new) and starts the plugin, then synthesizes
// catalogue commands from its tool list.
func (h *Host) Connect(ctx context.Context, cfg Config) error {
	h.mu.Lock()
	s, ok := h.sessions[cfg.Name]
	if !ok {
		s = newSession(cfg)
		h.sessions[cfg.Name] = s
	}
	h.mu.Unlock()

	if err := s.Connect(ctx); err != nil {
		return err
	}

	tools, err := s.ListTools(ctx)
	if err != nil {
		return err
	}

	specs := registry.SynthesizeCommands(cfg.Name, tools)
	h.catalogue.InsertSynthetic(specs)
	logging.Info("plugin", "connected %s: synthesized %d commands", cfg.Name, len(specs))
	return nil
}

// Disconnect stops the plugin and removes its synthesized commands from
// the catalogue.
func (h *Host) Disconnect(name string) error {
	s, ok := h.sessionFor(name)
	if !ok {
		return apperr.NotFoundf("plugin", name)
	}
	err := s.Disconnect()
	h.catalogue.RemoveSynthetic(h.catalogue.SyntheticIDsForPlugin(name))
	return err
}

// ListTools returns the plugin's currently-advertised tools.
func (h *Host) ListTools(ctx context.Context, name string) ([]string, error) {
	s, ok := h.sessionFor(name)
	if !ok {
		return nil, apperr.NotFoundf("plugin", name)
	}
	tools, err := s.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names, nil
}

// CallTool implements the dispatch.PluginCaller and provider.PluginCaller
// contracts: forward a tool invocation to the named plugin and return
// its result as raw JSON.
func (h *Host) CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error) {
	s, ok := h.sessionFor(pluginName)
	if !ok {
		return nil, apperr.NotFoundf("plugin", pluginName)
	}
	result, err := s.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, err
	}
	return encodeToolResult(result)
}

// HealthCheck pings the plugin without going through the command path.
func (h *Host) HealthCheck(ctx context.Context, name string) error {
	s, ok := h.sessionFor(name)
	if !ok {
		return apperr.NotFoundf("plugin", name)
	}
	return s.HealthCheck(ctx)
}

// State reports a plugin's current lifecycle state.
func (h *Host) State(name string) (State, bool) {
	s, ok := h.sessionFor(name)
	if !ok {
		return "", false
	}
	return s.State(), true
}

// Logs returns the plugin's retained stderr lines, oldest first.
func (h *Host) Logs(name string) ([]string, error) {
	s, ok := h.sessionFor(name)
	if !ok {
		return nil, apperr.NotFoundf("plugin", name)
	}
	return s.LogLines(), nil
}

// Names lists every registered plugin, connected or not.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.sessions))
	for name := range h.sessions {
		names = append(names, name)
	}
	return names
}

// encodeToolResult renders an MCP tool result's content blocks as a
// single JSON value. A lone text block whose text is itself valid JSON
// is passed through verbatim so callers see structured data rather than
// a JSON-encoded string; anything else falls back to encoding the raw
// content array.
func encodeToolResult(result *mcp.CallToolResult) (json.RawMessage, error) {
	if result == nil {
		return json.RawMessage(`null`), nil
	}
	if result.IsError {
		return nil, apperr.New(apperr.Tool, "tool_reported_error", toolErrorMessage(result))
	}
	if len(result.Content) == 1 {
		if text, ok := result.Content[0].(mcp.TextContent); ok {
			if json.Valid([]byte(text.Text)) {
				return json.RawMessage(text.Text), nil
			}
			return json.Marshal(text.Text)
		}
	}
	return json.Marshal(result.Content)
}

func toolErrorMessage(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool call returned an error"
}
