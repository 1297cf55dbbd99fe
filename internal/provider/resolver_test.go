package provider

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/bench/internal/contract"
	"github.com/giantswarm/bench/internal/registry"
)

type fakeDispatcher struct {
	calls   int32
	payload json.RawMessage
	err     error
	delay   time.Duration
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, spec registry.CommandSpec, args map[string]interface{}) (json.RawMessage, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

type fakePluginCaller struct{}

func (fakePluginCaller) CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func setup(t *testing.T, payload json.RawMessage) (*Resolver, *fakeDispatcher) {
	t.Helper()
	cat := registry.NewCatalogue([]registry.CommandSpec{
		{
			Group: "apps",
			Name:  "apps list",
			Backing: registry.Backing{
				Kind:         registry.BackingHTTP,
				Method:       "GET",
				PathTemplate: "/v1/apps",
			},
		},
	})
	store := contract.NewStore(cat)
	disp := &fakeDispatcher{payload: payload}
	return New(cat, store, disp, fakePluginCaller{}), disp
}

func TestFetchProjectsArrayByDefaultTags(t *testing.T) {
	r, _ := setup(t, json.RawMessage(`[{"id":"a1","name":"App One"},{"id":"a2","name":"App Two"}]`))

	items, err := r.Fetch(context.Background(), "apps list", nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Item{Value: "a1", Label: "App One"}, items[0])
	assert.Equal(t, Item{Value: "a2", Label: "App Two"}, items[1])
}

func TestFetchCoercesScalarResponse(t *testing.T) {
	r, _ := setup(t, json.RawMessage(`"just-a-string"`))

	items, err := r.Fetch(context.Background(), "apps list", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Item{Value: "just-a-string", Label: "just-a-string"}, items[0])
}

func TestFetchCachesResults(t *testing.T) {
	r, disp := setup(t, json.RawMessage(`[{"id":"a1","name":"App One"}]`))

	_, err := r.Fetch(context.Background(), "apps list", nil)
	require.NoError(t, err)
	_, err = r.Fetch(context.Background(), "apps list", nil)
	require.NoError(t, err)

	assert.EqualValues(t, 1, disp.calls)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	r, disp := setup(t, nil)
	disp.err = assert.AnError

	_, err := r.Fetch(context.Background(), "apps list", nil)
	require.Error(t, err)

	_, err = r.Fetch(context.Background(), "apps list", nil)
	require.Error(t, err)

	assert.EqualValues(t, 2, disp.calls)
}

func TestFetchDifferentArgsGetDifferentCacheKeys(t *testing.T) {
	r, disp := setup(t, json.RawMessage(`[{"id":"a1","name":"App One"}]`))

	_, err := r.Fetch(context.Background(), "apps list", map[string]interface{}{"region": "eu"})
	require.NoError(t, err)
	_, err = r.Fetch(context.Background(), "apps list", map[string]interface{}{"region": "us"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, disp.calls)
}

func TestFetchUnknownProviderFails(t *testing.T) {
	r, _ := setup(t, nil)
	_, err := r.Fetch(context.Background(), "apps nonexistent", nil)
	assert.Error(t, err)
}

func TestFetchDedupsConcurrentCalls(t *testing.T) {
	r, disp := setup(t, json.RawMessage(`[{"id":"a1","name":"App One"}]`))
	disp.delay = 50 * time.Millisecond

	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := r.Fetch(context.Background(), "apps list", nil)
			results <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-results)
	}

	assert.EqualValues(t, 1, disp.calls)
}
