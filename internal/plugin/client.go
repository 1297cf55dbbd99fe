package plugin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/bench/pkg/logging"
)

// toolClient is the minimal surface every transport exposes, trimmed to
// what PluginHost actually drives: tool discovery and invocation. A
// plugin's resources/prompts, if any, are not part of this workbench's
// command surface.
type toolClient interface {
	Initialize(ctx context.Context) error
	Close() error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
	Ping(ctx context.Context) error
}

type baseClient struct {
	client    client.MCPClient
	mu        sync.RWMutex
	connected bool
}

func (b *baseClient) checkConnected() error {
	if !b.connected || b.client == nil {
		return fmt.Errorf("plugin client not connected")
	}
	return nil
}

func (b *baseClient) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected || b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.connected = false
	b.client = nil
	return err
}

func (b *baseClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	result, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

func (b *baseClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	result, err := b.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	return result, nil
}

func (b *baseClient) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return err
	}
	return b.client.Ping(ctx)
}

func handshake(ctx context.Context, name string, c client.MCPClient) error {
	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo:      mcp.Implementation{Name: "bench", Version: "1.0.0"},
			Capabilities:    mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		return fmt.Errorf("initialize MCP protocol for %s: %w", name, err)
	}
	return nil
}

// stdioClient runs the plugin as a child process communicating over
// stdin/stdout, with stderr streamed into a bounded logRing.
type stdioClient struct {
	baseClient
	command string
	args    []string
	env     map[string]string
	logs    *logRing
}

func newStdioClient(cfg Config, logs *logRing) *stdioClient {
	return &stdioClient{command: cfg.Command, args: cfg.Args, env: cfg.Env, logs: logs}
}

func (c *stdioClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var envStrings []string
	for k, v := range c.env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(c.command, envStrings, c.args...)
	if err != nil {
		return fmt.Errorf("start plugin process %q: %w", c.command, err)
	}

	if stderr, ok := client.GetStderr(mcpClient); ok {
		go drainStderr(stderr, c.logs)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, StartTimeout)
		defer cancel()
	}

	if err := handshake(initCtx, c.command, mcpClient); err != nil {
		mcpClient.Close()
		return err
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

func drainStderr(r io.Reader, logs *logRing) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logs.Append(scanner.Text())
	}
}

// sseClient connects to a remote plugin endpoint over Server-Sent
// Events.
type sseClient struct {
	baseClient
	url     string
	headers map[string]string
}

func newSSEClient(cfg Config) *sseClient {
	return &sseClient{url: cfg.URL, headers: cfg.Headers}
}

func (c *sseClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var opts []transport.ClientOption
	if len(c.headers) > 0 {
		opts = append(opts, transport.WithHeaders(c.headers))
	}

	mcpClient, err := client.NewSSEMCPClient(c.url, opts...)
	if err != nil {
		return fmt.Errorf("create SSE client for %s: %w", c.url, err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start SSE transport for %s: %w", c.url, err)
	}
	if err := handshake(ctx, c.url, mcpClient); err != nil {
		mcpClient.Close()
		return err
	}

	c.client = mcpClient
	c.connected = true
	logging.Debug("plugin", "connected to %s over SSE", c.url)
	return nil
}

// streamableClient connects to a remote plugin endpoint over streamable
// HTTP.
type streamableClient struct {
	baseClient
	url     string
	headers map[string]string
}

func newStreamableClient(cfg Config) *streamableClient {
	return &streamableClient{url: cfg.URL, headers: cfg.Headers}
}

func (c *streamableClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var opts []transport.StreamableHTTPCOption
	if len(c.headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(c.headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(c.url, opts...)
	if err != nil {
		return fmt.Errorf("create streamable HTTP client for %s: %w", c.url, err)
	}
	if err := handshake(ctx, c.url, mcpClient); err != nil {
		mcpClient.Close()
		return err
	}

	c.client = mcpClient
	c.connected = true
	logging.Debug("plugin", "connected to %s over streamable HTTP", c.url)
	return nil
}

func newClient(cfg Config, logs *logRing) (toolClient, error) {
	switch cfg.Transport {
	case TransportStdio:
		return newStdioClient(cfg, logs), nil
	case TransportSSE:
		return newSSEClient(cfg), nil
	case TransportStreamable:
		return newStreamableClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown plugin transport %q", cfg.Transport)
	}
}
