// Package cli holds presentation-layer helpers shared by cmd and the
// interactive workbench: output format validation, common flags, exit
// code mapping, and table/JSON/YAML rendering of catalogue, plugin, and
// workflow run data.
package cli
