// Package config implements ConfigSurface: load/save of plugin
// configuration, catalog selection, preferences, and workflow manifests
// under the user's config directory, with "${env:X}"/"${secret:X}"
// placeholder interpolation on load and re-tokenization on save.
package config
