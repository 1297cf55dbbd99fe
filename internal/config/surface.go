package config

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/workflow"
)

// Surface implements ConfigSurface: preferences, plugin configuration,
// catalog selection, and workflow manifests, all rooted under one user
// config directory.
type Surface struct {
	dir     string
	secrets SecretResolver

	mu        sync.Mutex
	mcpRaw    MCPDocument
	mcpTokens tokenMap
}

// New builds a Surface rooted at dir. secrets may be nil if no plugin
// configuration uses "${secret:X}" placeholders.
func New(dir string, secrets SecretResolver) *Surface {
	return &Surface{dir: dir, secrets: secrets}
}

// DefaultDir returns "<home>/.config/bench". Individual files can be
// relocated by BENCH_PREFERENCES_PATH (preferences.json), MCP_CONFIG_PATH
// (mcp.json) and REGISTRY_CONFIG_PATH (a directory holding registry.json).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "user_home_dir", "could not determine user config directory", err)
	}
	return filepath.Join(home, ".config", "bench"), nil
}

func (s *Surface) preferencesPath() string {
	if p := os.Getenv(EnvPreferencesPath); p != "" {
		return p
	}
	return filepath.Join(s.dir, "preferences.json")
}

func (s *Surface) registryPath() string {
	if p := os.Getenv(EnvRegistryConfigDir); p != "" {
		return filepath.Join(p, "registry.json")
	}
	return filepath.Join(s.dir, "registry.json")
}

func (s *Surface) workflowsDir() string {
	return filepath.Join(s.dir, "workflows")
}

// LoadPreferences reads preferences.json, returning zero-value
// Preferences if the file does not yet exist.
func (s *Surface) LoadPreferences() (Preferences, error) {
	var prefs Preferences
	data, err := os.ReadFile(s.preferencesPath())
	if os.IsNotExist(err) {
		return prefs, nil
	}
	if err != nil {
		return prefs, apperr.Wrap(apperr.Internal, "read_preferences", "could not read preferences.json", err)
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return prefs, apperr.Wrap(apperr.Validation, "parse_preferences", "preferences.json is not valid JSON", err)
	}
	return prefs, nil
}

// SavePreferences writes preferences.json atomically.
func (s *Surface) SavePreferences(prefs Preferences) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal_preferences", "could not marshal preferences", err)
	}
	path := s.preferencesPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create config directory", err)
	}
	return writeAtomic(path, data)
}

// LoadRegistrySelection reads registry.json, defaulting ActiveCatalogSlug
// to "default" if the file does not yet exist.
func (s *Surface) LoadRegistrySelection() (RegistrySelection, error) {
	sel := RegistrySelection{ActiveCatalogSlug: "default"}
	data, err := os.ReadFile(s.registryPath())
	if os.IsNotExist(err) {
		return sel, nil
	}
	if err != nil {
		return sel, apperr.Wrap(apperr.Internal, "read_registry_selection", "could not read registry.json", err)
	}
	if err := json.Unmarshal(data, &sel); err != nil {
		return sel, apperr.Wrap(apperr.Validation, "parse_registry_selection", "registry.json is not valid JSON", err)
	}
	return sel, nil
}

// SaveRegistrySelection writes registry.json atomically.
func (s *Surface) SaveRegistrySelection(sel RegistrySelection) error {
	data, err := json.MarshalIndent(sel, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal_registry_selection", "could not marshal registry selection", err)
	}
	path := s.registryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperr.Wrap(apperr.Internal, "mkdir", "could not create config directory", err)
	}
	return writeAtomic(path, data)
}

// LoadWorkflows parses every *.yaml/*.yml/*.json file under
// "<config dir>/workflows" into a WorkflowSpec, skipping files that fail
// to parse and collecting their errors rather than aborting the whole
// load.
func (s *Surface) LoadWorkflows() ([]workflow.WorkflowSpec, []error) {
	dir := s.workflowsDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, []error{apperr.Wrap(apperr.Internal, "read_workflows_dir", "could not read workflows directory", err)}
	}

	var specs []workflow.WorkflowSpec
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, apperr.Wrap(apperr.Internal, "read_workflow_file", "could not read "+path, err))
			continue
		}
		var spec workflow.WorkflowSpec
		if ext == ".json" {
			err = json.Unmarshal(data, &spec)
		} else {
			err = yaml.Unmarshal(data, &spec)
		}
		if err != nil {
			errs = append(errs, apperr.Wrap(apperr.Validation, "parse_workflow_file", "could not parse "+path, err))
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

// EnvTokenSource implements dispatch.TokenSource by reading BENCH_API_KEY
// from the environment on every call, so a token rotated mid-session is
// picked up without restarting the workbench.
type EnvTokenSource struct{}

func (EnvTokenSource) Token(ctx context.Context) (string, error) {
	return os.Getenv(EnvAPIKey), nil
}

// writeAtomic writes data to a temp file beside path and renames it into
// place, so a crash mid-write never leaves a truncated config file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create_temp", "could not create temp file for atomic write", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "write_temp", "could not write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "close_temp", "could not close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.Internal, "rename_temp", "could not rename temp file into place", err)
	}
	return nil
}

func basicAuthEncode(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}
