// Package plugin implements PluginHost: the lifecycle manager for MCP
// plugins, each either a child process speaking stdio or a remote
// endpoint speaking SSE/streamable-HTTP. A plugin session moves through
// Stopped -> Starting -> Running -> (Stopped | Failed); calls into a
// session are serialized per plugin but run in parallel across plugins.
package plugin
