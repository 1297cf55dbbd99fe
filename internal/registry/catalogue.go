package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/pkg/logging"
)

// CommandCatalogue is the process-wide set of invocable commands: a base
// set loaded once from an embedded manifest, plus synthetic commands
// contributed by connected plugins. Writers are serialized by mu; readers
// take a snapshot copy so a long-running iteration never observes a
// partial mutation.
type CommandCatalogue struct {
	mu   sync.Mutex
	base []CommandSpec
	syn  []CommandSpec

	// index is rebuilt after every mutation and swapped in under indexMu;
	// lookups take indexMu for reading and never take mu.
	indexMu sync.RWMutex
	index   map[string]CommandSpec
}

// NewCatalogue builds a catalogue from the base command set loaded at
// startup. base must already be free of internal duplicates.
func NewCatalogue(base []CommandSpec) *CommandCatalogue {
	c := &CommandCatalogue{base: append([]CommandSpec(nil), base...)}
	c.rebuildIndex()
	return c
}

func (c *CommandCatalogue) rebuildIndex() {
	idx := make(map[string]CommandSpec, len(c.base)+len(c.syn))
	for _, s := range c.base {
		idx[s.CanonicalID()] = s
	}
	for _, s := range c.syn {
		idx[s.CanonicalID()] = s
	}
	c.indexMu.Lock()
	c.index = idx
	c.indexMu.Unlock()
}

// Lookup resolves a canonical id ("group name"). Colon-delimited legacy
// ids ("group:name") are rejected rather than guessed at: the caller must
// re-author the reference in space-delimited form.
func (c *CommandCatalogue) Lookup(canonicalID string) (CommandSpec, error) {
	if strings.Contains(canonicalID, ":") {
		logging.Warn("registry", "rejecting legacy colon-delimited command id %q", canonicalID)
		return CommandSpec{}, apperr.Validationf(canonicalID, "legacy_command_id",
			"command id %q uses the deprecated colon-delimited form; use \"<group> <name>\"", canonicalID)
	}

	c.indexMu.RLock()
	spec, ok := c.index[canonicalID]
	c.indexMu.RUnlock()
	if !ok {
		return CommandSpec{}, apperr.NotFoundf("command", canonicalID)
	}
	return spec, nil
}

// Find resolves a command by its separate group and name components.
func (c *CommandCatalogue) Find(group, name string) (CommandSpec, error) {
	id := group + " " + strings.TrimPrefix(name, group+" ")
	return c.Lookup(id)
}

// InsertSynthetic extends the synthetic set with specs contributed by a
// plugin connection, then re-sorts by (group, name) and dedups by
// (group, name, backing.equality_key). Two specs that collide on
// (group, name) are considered the same command only when their backing
// equality keys also match (e.g. same HTTP method+path); otherwise the
// later insertion wins, which lets a freshly (re)connected plugin overlay
// a stale synthetic entry left by a prior connection.
func (c *CommandCatalogue) InsertSynthetic(specs []CommandSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syn = append(c.syn, specs...)

	sort.SliceStable(c.syn, func(i, j int) bool {
		if c.syn[i].Group != c.syn[j].Group {
			return c.syn[i].Group < c.syn[j].Group
		}
		return c.syn[i].Name < c.syn[j].Name
	})

	deduped := make([]CommandSpec, 0, len(c.syn))
	seen := make(map[string]int) // canonical id -> index in deduped
	for _, s := range c.syn {
		key := s.CanonicalID()
		if i, ok := seen[key]; ok {
			if deduped[i].Backing.EqualityKey() == s.Backing.EqualityKey() {
				continue
			}
			deduped[i] = s
			continue
		}
		seen[key] = len(deduped)
		deduped = append(deduped, s)
	}
	c.syn = deduped

	c.rebuildIndex()
}

// RemoveSynthetic drops every synthetic command whose canonical id is in
// ids. Invoked when a plugin disconnects so its tools stop resolving.
func (c *CommandCatalogue) RemoveSynthetic(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	toRemove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		toRemove[id] = struct{}{}
	}

	kept := c.syn[:0:0]
	for _, s := range c.syn {
		if _, drop := toRemove[s.CanonicalID()]; drop {
			continue
		}
		kept = append(kept, s)
	}
	c.syn = kept

	c.rebuildIndex()
}

// SyntheticIDsForPlugin returns the canonical ids of every synthetic
// command currently attributed to pluginID, for use with RemoveSynthetic
// on disconnect.
func (c *CommandCatalogue) SyntheticIDsForPlugin(pluginID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ids []string
	for _, s := range c.syn {
		if s.Backing.Kind == BackingPlugin && s.Backing.PluginID == pluginID {
			ids = append(ids, s.CanonicalID())
		}
	}
	return ids
}

// All returns a snapshot of every command currently in the catalogue,
// base and synthetic, sorted by canonical id.
func (c *CommandCatalogue) All() []CommandSpec {
	c.indexMu.RLock()
	defer c.indexMu.RUnlock()

	out := make([]CommandSpec, 0, len(c.index))
	for _, s := range c.index {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalID() < out[j].CanonicalID() })
	return out
}
