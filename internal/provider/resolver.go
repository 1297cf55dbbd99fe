// Package provider answers fetch(provider_id, args) requests used to
// populate interactive suggestions and provider-bound step arguments: a
// provider is either a registry command dispatched over HTTP, or an MCP
// plugin tool, and either way its JSON results are projected into
// {value, label} pairs per the owning contract.
package provider

import (
	"context"
	"hash/fnv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/contract"
	"github.com/giantswarm/bench/internal/registry"
)

// DefaultTTL is the cache lifetime applied when a contract does not
// declare its own CacheTTL.
const DefaultTTL = 5 * time.Minute

// Item is one projected provider result.
type Item struct {
	Value string
	Label string
}

// Dispatcher is the subset of CommandDispatcher the resolver needs: it
// is declared here, at the point of use, so this package has no
// compile-time dependency on internal/dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, spec registry.CommandSpec, args map[string]interface{}) (json.RawMessage, error)
}

// PluginCaller is the subset of PluginHost the resolver needs to invoke
// an MCP tool directly, bypassing CommandDispatcher's REST-shaped args.
type PluginCaller interface {
	CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error)
}

type cacheEntry struct {
	items     []Item
	expiresAt time.Time
}

// Resolver implements ProviderResolver: cached, deduplicated fetches
// projected through a ProviderContractStore.
type Resolver struct {
	catalogue  *registry.CommandCatalogue
	contracts  *contract.Store
	dispatcher Dispatcher
	plugins    PluginCaller

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New builds a Resolver over the given catalogue, contract store,
// dispatcher, and plugin host.
func New(catalogue *registry.CommandCatalogue, contracts *contract.Store, dispatcher Dispatcher, plugins PluginCaller) *Resolver {
	return &Resolver{
		catalogue:  catalogue,
		contracts:  contracts,
		dispatcher: dispatcher,
		plugins:    plugins,
		cache:      make(map[string]cacheEntry),
	}
}

// cacheKey builds "<canonical_id>:<64-bit-hash(json(args))>".
func cacheKey(canonicalID string, args map[string]interface{}) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshaling provider args: %w", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return fmt.Sprintf("%s:%d", canonicalID, h.Sum64()), nil
}

func (r *Resolver) cached(key string) ([]Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.items, true
}

func (r *Resolver) store(key string, items []Item, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = cacheEntry{items: items, expiresAt: time.Now().Add(ttl)}
}

func (r *Resolver) clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, key)
}

// Fetch resolves a provider id against the given args, serving from
// cache when fresh, deduplicating concurrent identical fetches via
// singleflight, and projecting raw JSON results into {value, label}
// items per the provider's contract. Fetch errors are surfaced to the
// caller and never cached.
func (r *Resolver) Fetch(ctx context.Context, providerID string, args map[string]interface{}) ([]Item, error) {
	c, err := r.contracts.Resolve(providerID)
	if err != nil {
		return nil, err
	}

	key, err := cacheKey(c.ProviderID, args)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "cache_key", "could not build provider cache key", err)
	}

	if items, ok := r.cached(key); ok {
		return items, nil
	}

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		if items, ok := r.cached(key); ok {
			return items, nil
		}

		raw, err := r.dispatch(ctx, c, args)
		if err != nil {
			r.clear(key)
			return nil, err
		}

		items, err := projectItems(raw, c)
		if err != nil {
			r.clear(key)
			return nil, err
		}

		ttl := DefaultTTL
		if ttlOverride := contractTTL(c); ttlOverride != nil {
			ttl = *ttlOverride
		}
		r.store(key, items, ttl)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}

// FetchSync runs Fetch synchronously on the caller's goroutine under the
// caller's context and deadline. The REPL's suggest command calls it with
// its per-command context.
func (r *Resolver) FetchSync(ctx context.Context, providerID string, args map[string]interface{}) ([]Item, error) {
	return r.Fetch(ctx, providerID, args)
}

func (r *Resolver) dispatch(ctx context.Context, c contract.Contract, args map[string]interface{}) (json.RawMessage, error) {
	if strings.Contains(c.ProviderID, " ") {
		parts := strings.SplitN(c.ProviderID, " ", 2)
		group := parts[0]

		spec, err := r.catalogue.Lookup(c.ProviderID)
		if err != nil {
			return nil, err
		}

		if spec.Backing.Kind == registry.BackingPlugin {
			return r.plugins.CallTool(ctx, group, spec.Backing.ToolName, args)
		}
		return r.dispatcher.Dispatch(ctx, spec, args)
	}
	return nil, apperr.NotFoundf("provider", c.ProviderID)
}

// projectItems turns a raw JSON provider response (expected to be a
// JSON array, or a single scalar/object) into {value, label} items
// using the contract's field tags.
func projectItems(raw json.RawMessage, c contract.Contract) ([]Item, error) {
	var asArray []interface{}
	if err := json.Unmarshal(raw, &asArray); err == nil {
		items := make([]Item, 0, len(asArray))
		for _, v := range asArray {
			items = append(items, projectOne(v, c))
		}
		return items, nil
	}

	var asScalarOrObject interface{}
	if err := json.Unmarshal(raw, &asScalarOrObject); err != nil {
		return nil, apperr.Wrap(apperr.Tool, "invalid_provider_output", "provider output was not valid JSON", err)
	}
	return []Item{projectOne(asScalarOrObject, c)}, nil
}

func projectOne(v interface{}, c contract.Contract) Item {
	obj, ok := v.(map[string]interface{})
	if !ok {
		s := scalarToString(v)
		return Item{Value: s, Label: s}
	}

	value := selectField(obj, c, contract.TagID, contract.TagIdentifier)
	label := selectField(obj, c, contract.TagDisplay, contract.TagName)

	if value == "" {
		value = fallbackFieldByPrecedence(obj)
	}
	if label == "" {
		label = value
	}
	return Item{Value: value, Label: label}
}

// selectField returns the stringified value of the first contract field
// tagged with any of wantTags that is present in obj.
func selectField(obj map[string]interface{}, c contract.Contract, wantTags ...contract.FieldTag) string {
	for _, field := range c.Returns.Fields {
		for _, tag := range wantTags {
			if field.HasTag(tag) {
				if v, ok := obj[field.Name]; ok {
					return scalarToString(v)
				}
			}
		}
	}
	return ""
}

// fallbackFieldByPrecedence is used when no id/identifier-tagged field is
// present in obj: field name precedence id > name > str > first
// string-valued key.
func fallbackFieldByPrecedence(obj map[string]interface{}) string {
	if v, ok := obj["id"]; ok {
		return scalarToString(v)
	}
	if v, ok := obj["name"]; ok {
		return scalarToString(v)
	}
	if v, ok := obj["str"]; ok {
		return scalarToString(v)
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := obj[k].(string); ok {
			return scalarToString(obj[k])
		}
	}
	return ""
}

func scalarToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

func contractTTL(c contract.Contract) *time.Duration {
	return c.CacheTTL
}
