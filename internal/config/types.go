package config

import (
	"os"
	"strings"
)

// EnvPrefix names the environment variable family this surface reads:
// BENCH_API_KEY, BENCH_API_BASE, BENCH_PREFERENCES_PATH.
const EnvPrefix = "BENCH"

const (
	EnvAPIKey            = EnvPrefix + "_API_KEY"
	EnvAPIBase           = EnvPrefix + "_API_BASE"
	EnvFeatureWorkflows  = "FEATURE_WORKFLOWS"
	EnvMCPConfigPath     = "MCP_CONFIG_PATH"
	EnvRegistryConfigDir = "REGISTRY_CONFIG_PATH"
	EnvRegistryCatalogs  = "REGISTRY_CATALOGS_PATH"
	EnvPreferencesPath   = EnvPrefix + "_PREFERENCES_PATH"
)

// FeatureWorkflowsEnabled reports whether FEATURE_WORKFLOWS is set to "1"
// or "true" (case-insensitive), the toggle that exposes every loaded
// workflow as a first-class Internal-backed catalogue command in
// addition to the dedicated "workflow run" verb.
func FeatureWorkflowsEnabled() bool {
	v := os.Getenv(EnvFeatureWorkflows)
	return v == "1" || strings.EqualFold(v, "true")
}

// AuthScheme is the closed set of auth schemes a plugin endpoint may
// declare in mcp.json.
type AuthScheme string

const (
	AuthSchemeBasic  AuthScheme = "basic"
	AuthSchemeBearer AuthScheme = "bearer"
)

// AuthConfig is the (possibly tokenized) auth block of one plugin entry.
type AuthConfig struct {
	Scheme   AuthScheme `json:"scheme,omitempty"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	Token    string     `json:"token,omitempty"`
}

// RawPluginConfig is one entry of mcp.json exactly as persisted: string
// fields may carry unresolved "${env:X}"/"${secret:X}" placeholders.
type RawPluginConfig struct {
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	CWD       string            `json:"cwd,omitempty"`
	URL       string            `json:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Auth      *AuthConfig       `json:"auth,omitempty"`
}

// MCPDocument is the full contents of mcp.json.
type MCPDocument struct {
	MCPServers map[string]RawPluginConfig `json:"mcp_servers"`
}

// Preferences is the contents of preferences.json: small, user-editable
// workbench settings outside the plugin/catalog/workflow domains.
type Preferences struct {
	Theme             string `json:"theme,omitempty"`
	DefaultOutputMode string `json:"default_output_mode,omitempty"`
	Editor            string `json:"editor,omitempty"`
}

// RegistrySelection is the contents of registry.json: which compiled
// catalog under catalogs/ is currently active.
type RegistrySelection struct {
	ActiveCatalogSlug string `json:"active_catalog_slug"`
}
