package plugin

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/bench/internal/apperr"
)

// session holds one plugin's live connection, serializing calls into it
// so a single misbehaving tool call cannot interleave with another on
// the same underlying process.
type session struct {
	cfg Config

	mu        sync.Mutex // serializes calls into client
	stateMu   sync.RWMutex
	state     State
	failedErr error

	client     toolClient
	logs       *logRing
	lastHealth time.Time
}

func newSession(cfg Config) *session {
	return &session{cfg: cfg, state: StateStopped, logs: newLogRing(logRingCapacity)}
}

// newClientFn builds the transport client for a session; overridden in
// tests to avoid spawning real processes or network connections.
var newClientFn = newClient

func (s *session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *session) setState(st State, err error) {
	s.stateMu.Lock()
	s.state = st
	s.failedErr = err
	s.stateMu.Unlock()
}

// Connect starts the plugin's process/connection and performs the MCP
// handshake, moving Stopped -> Starting -> (Running | Failed).
func (s *session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateRunning {
		return nil
	}
	s.setState(StateStarting, nil)

	c, err := newClientFn(s.cfg, s.logs)
	if err != nil {
		s.setState(StateFailed, err)
		return apperr.Wrap(apperr.Internal, "plugin_config", "invalid plugin configuration", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, StartTimeout)
	defer cancel()

	if err := c.Initialize(startCtx); err != nil {
		s.setState(StateFailed, err)
		return apperr.Wrap(apperr.Transport, "plugin_connect_failed", "could not connect to plugin "+s.cfg.Name, err).
			WithRetryable(true)
	}

	s.client = c
	s.setState(StateRunning, nil)
	return nil
}

// Disconnect stops the plugin, moving to Stopped regardless of prior
// state.
func (s *session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		s.setState(StateStopped, nil)
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.setState(StateStopped, nil)
	return err
}

func (s *session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateRunning {
		return nil, apperr.New(apperr.Conflict, "plugin_not_running", "plugin "+s.cfg.Name+" is not running")
	}
	tools, err := s.client.ListTools(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transport, "list_tools_failed", "could not list tools for plugin "+s.cfg.Name, err)
	}
	return tools, nil
}

func (s *session) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateRunning {
		return nil, apperr.New(apperr.Conflict, "plugin_not_running", "plugin "+s.cfg.Name+" is not running")
	}
	result, err := s.client.CallTool(ctx, name, args)
	if err != nil {
		return nil, apperr.Wrap(apperr.Tool, "tool_call_failed", "tool "+name+" failed on plugin "+s.cfg.Name, err)
	}
	return result, nil
}

func (s *session) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateRunning {
		return apperr.New(apperr.Conflict, "plugin_not_running", "plugin "+s.cfg.Name+" is not running")
	}
	if err := s.client.Ping(ctx); err != nil {
		s.setState(StateFailed, err)
		return apperr.Wrap(apperr.Transport, "health_check_failed", "plugin "+s.cfg.Name+" failed its health check", err).
			WithRetryable(true)
	}
	s.lastHealth = time.Now()
	return nil
}

func (s *session) LogLines() []string {
	return s.logs.Snapshot()
}
