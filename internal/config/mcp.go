package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/plugin"
)

// LoadMCPConfig reads mcp.json, interpolates every "${env:X}"/
// "${secret:X}" placeholder, and returns the resolved plugin configs
// keyed by plugin name. The raw document (with placeholders intact) and
// the token map used to resolve it are cached on the Surface so a
// subsequent SaveMCPConfig can re-tokenize.
func (s *Surface) LoadMCPConfig() (map[string]plugin.Config, error) {
	path := s.mcpPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.mcpRaw = MCPDocument{MCPServers: map[string]RawPluginConfig{}}
		s.mcpTokens = tokenMap{}
		s.mu.Unlock()
		return map[string]plugin.Config{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "read_mcp_config", "could not read "+path, err)
	}

	var doc MCPDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "parse_mcp_config", "mcp.json is not valid JSON", err)
	}

	tokens := tokenMap{}
	resolved := make(map[string]plugin.Config, len(doc.MCPServers))
	for name, raw := range doc.MCPServers {
		cfg, err := resolvePluginConfig(name, raw, s.secrets, tokens)
		if err != nil {
			return nil, err
		}
		resolved[name] = cfg
	}

	s.mu.Lock()
	s.mcpRaw = doc
	s.mcpTokens = tokens
	s.mu.Unlock()

	return resolved, nil
}

func resolvePluginConfig(name string, raw RawPluginConfig, secrets SecretResolver, tokens tokenMap) (plugin.Config, error) {
	cfg := plugin.Config{
		Name:      name,
		Transport: plugin.Transport(raw.Transport),
		Command:   raw.Command,
		URL:       raw.URL,
		CWD:       raw.CWD,
	}

	var err error
	if cfg.Command, err = interpolate(raw.Command, secrets, tokens); err != nil {
		return plugin.Config{}, err
	}
	if cfg.URL, err = interpolate(raw.URL, secrets, tokens); err != nil {
		return plugin.Config{}, err
	}
	if cfg.CWD, err = interpolate(raw.CWD, secrets, tokens); err != nil {
		return plugin.Config{}, err
	}

	cfg.Args = make([]string, len(raw.Args))
	for i, a := range raw.Args {
		if cfg.Args[i], err = interpolate(a, secrets, tokens); err != nil {
			return plugin.Config{}, err
		}
	}

	cfg.Env = make(map[string]string, len(raw.Env))
	for k, v := range raw.Env {
		if cfg.Env[k], err = interpolate(v, secrets, tokens); err != nil {
			return plugin.Config{}, err
		}
	}

	cfg.Headers = make(map[string]string, len(raw.Headers))
	for k, v := range raw.Headers {
		if cfg.Headers[k], err = interpolate(v, secrets, tokens); err != nil {
			return plugin.Config{}, err
		}
	}

	if raw.Auth != nil {
		if raw.Auth.Token != "" {
			token, err := interpolate(raw.Auth.Token, secrets, tokens)
			if err != nil {
				return plugin.Config{}, err
			}
			cfg.Headers["Authorization"] = "Bearer " + token
		} else if raw.Auth.Scheme == AuthSchemeBasic {
			user, err := interpolate(raw.Auth.Username, secrets, tokens)
			if err != nil {
				return plugin.Config{}, err
			}
			pass, err := interpolate(raw.Auth.Password, secrets, tokens)
			if err != nil {
				return plugin.Config{}, err
			}
			cfg.Headers["Authorization"] = basicAuthHeader(user, pass)
		}
	}

	return cfg, nil
}

// SaveMCPConfig writes the given plugin configs back to mcp.json,
// re-tokenizing any value that was originally a placeholder so secrets
// never reach disk. Configs with no prior load (values never seen in
// the token map) are persisted as plain literals.
func (s *Surface) SaveMCPConfig(configs map[string]plugin.Config) error {
	s.mu.Lock()
	tokens := s.mcpTokens
	prior := s.mcpRaw
	s.mu.Unlock()
	if tokens == nil {
		tokens = tokenMap{}
	}

	doc := MCPDocument{MCPServers: make(map[string]RawPluginConfig, len(configs))}
	for name, cfg := range configs {
		raw := RawPluginConfig{
			Transport: string(cfg.Transport),
			Command:   detokenize(cfg.Command, tokens),
			CWD:       detokenize(cfg.CWD, tokens),
			URL:       detokenize(cfg.URL, tokens),
		}
		if p, ok := prior.MCPServers[name]; ok && p.Auth != nil {
			// Keep the tokenized auth block; the Authorization header
			// derived from it is not written back.
			raw.Auth = p.Auth
		}
		for _, a := range cfg.Args {
			raw.Args = append(raw.Args, detokenize(a, tokens))
		}
		if len(cfg.Env) > 0 {
			raw.Env = make(map[string]string, len(cfg.Env))
			for k, v := range cfg.Env {
				raw.Env[k] = detokenize(v, tokens)
			}
		}
		if len(cfg.Headers) > 0 {
			raw.Headers = make(map[string]string, len(cfg.Headers))
			for k, v := range cfg.Headers {
				if k == "Authorization" && raw.Auth != nil {
					continue
				}
				raw.Headers[k] = detokenize(v, tokens)
			}
		}
		doc.MCPServers[name] = raw
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal_mcp_config", "could not marshal mcp.json", err)
	}

	path := s.mcpPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create config directory", err)
	}
	return writeAtomic(path, data)
}

func (s *Surface) mcpPath() string {
	if p := os.Getenv(EnvMCPConfigPath); p != "" {
		return p
	}
	return filepath.Join(s.dir, "mcp.json")
}

func basicAuthHeader(user, pass string) string {
	return "Basic " + basicAuthEncode(user, pass)
}
