// Package contract resolves provider ids to the ProviderContract that
// describes the shape of values they return, so the resolver and the
// interactive authoring UI know which field is the value and which is
// the label.
package contract

import (
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
)

// FieldTag classifies a returned field for selection purposes.
type FieldTag string

const (
	TagID         FieldTag = "id"
	TagIdentifier FieldTag = "identifier"
	TagName       FieldTag = "name"
	TagDisplay    FieldTag = "display"
)

// Argument is one declared input of a provider.
type Argument struct {
	Name             string
	Type             registry.ArgType
	PopulatedFromArg string // non-empty when this argument's value is copied from another field
}

// ReturnField is one field of the JSON object a provider returns.
type ReturnField struct {
	Name string
	Type registry.ArgType
	Tags []FieldTag
}

// HasTag reports whether the field carries the given tag.
func (f ReturnField) HasTag(tag FieldTag) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Contract describes a provider's declared inputs and the shape of its
// return items.
type Contract struct {
	ProviderID string
	Arguments  []Argument
	Returns    struct {
		Fields []ReturnField
	}

	// CacheTTL overrides the resolver's default cache lifetime for
	// items fetched through this provider, when set.
	CacheTTL *time.Duration
}

// defaultFields is synthesized for any known command that does not ship
// its own explicit contract. Field names follow
// registry.DefaultProviderContractFields; the tags below are what give
// each field its meaning to the resolver.
func defaultFields() []ReturnField {
	names := registry.DefaultProviderContractFields
	return []ReturnField{
		{Name: names[0], Type: registry.TypeString, Tags: []FieldTag{TagID, TagIdentifier}},
		{Name: names[1], Type: registry.TypeString, Tags: []FieldTag{TagDisplay, TagName}},
	}
}

// Store holds explicitly-registered contracts and synthesizes defaults
// for known commands that don't have one.
type Store struct {
	mu        sync.RWMutex
	catalogue *registry.CommandCatalogue
	explicit  map[string]Contract
}

// NewStore builds a contract store backed by the given catalogue, used
// to validate that a provider id without an explicit contract is at
// least a known command.
func NewStore(catalogue *registry.CommandCatalogue) *Store {
	return &Store{
		catalogue: catalogue,
		explicit:  make(map[string]Contract),
	}
}

// Register attaches an explicit contract to a provider id, overriding
// any default that would otherwise be synthesized.
func (s *Store) Register(providerID string, c Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ProviderID = providerID
	s.explicit[providerID] = c
}

// parseCanonicalID rejects the deprecated colon-delimited form and empty
// ids, and returns the id trimmed of surrounding whitespace. It does not
// split the id into group and name.
func parseCanonicalID(raw string) (string, error) {
	if strings.Contains(raw, ":") {
		return "", apperr.Validationf(raw, "legacy_provider_id",
			"provider id %q uses the deprecated colon-delimited form; use \"<group> <name>\"", raw)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperr.Validationf(raw, "empty_provider_id", "provider id must not be empty")
	}
	return trimmed, nil
}

// Resolve returns the contract for a raw provider id: an explicit
// registration if present, otherwise a synthesized default when the id
// names a known catalogue command. Returns a NotFound *apperr.Error when
// the command is unknown.
func (s *Store) Resolve(rawProviderID string) (Contract, error) {
	canonicalID, err := parseCanonicalID(rawProviderID)
	if err != nil {
		return Contract{}, err
	}

	s.mu.RLock()
	explicit, ok := s.explicit[canonicalID]
	s.mu.RUnlock()
	if ok {
		return explicit, nil
	}

	if _, err := s.catalogue.Lookup(canonicalID); err != nil {
		return Contract{}, apperr.NotFoundf("provider contract", canonicalID)
	}

	c := Contract{ProviderID: canonicalID}
	c.Returns.Fields = defaultFields()
	return c, nil
}
