package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

type noPlugins struct{}

func (noPlugins) CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error) {
	return nil, nil
}

func TestDispatchHTTPSubstitutesPathAndSendsAuth(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := New(srv.URL, staticToken("tok123"), noPlugins{})
	spec := registry.CommandSpec{
		Group: "apps",
		Name:  "apps get",
		PositionalArgs: []registry.PositionalArg{{Name: "id"}},
		Backing: registry.Backing{Kind: registry.BackingHTTP, Method: "GET", PathTemplate: "/v1/apps/{id}"},
	}

	raw, err := d.Dispatch(context.Background(), spec, Args{"id": "my app/1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "/v1/apps/my%20app%2F1", gotPath)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "application/vnd.bench+json; version=3", gotAccept)
}

func TestDispatchHTTPSendsJSONBodyForPost(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := New(srv.URL, staticToken("t"), noPlugins{})
	spec := registry.CommandSpec{
		Backing: registry.Backing{Kind: registry.BackingHTTP, Method: "POST", PathTemplate: "/v1/apps"},
	}

	_, err := d.Dispatch(context.Background(), spec, Args{"name": "demo"})
	require.NoError(t, err)
	assert.Equal(t, "demo", gotBody["name"])
}

func TestDispatchHTTPMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status   int
		category apperr.Category
	}{
		{http.StatusUnauthorized, apperr.Unauthorized},
		{http.StatusForbidden, apperr.Forbidden},
		{http.StatusInternalServerError, apperr.Transport},
		{http.StatusBadRequest, apperr.Validation},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		d := New(srv.URL, staticToken("t"), noPlugins{})
		spec := registry.CommandSpec{Backing: registry.Backing{Kind: registry.BackingHTTP, Method: "GET", PathTemplate: "/v1/x"}}

		_, err := d.Dispatch(context.Background(), spec, Args{})
		require.Error(t, err)
		assert.Equal(t, tc.category, apperr.CategoryOf(err))
		srv.Close()
	}
}

func TestDispatchPluginForwards(t *testing.T) {
	d := New("http://example.invalid", staticToken("t"), fakePluginCaller{result: json.RawMessage(`{"done":true}`)})
	spec := registry.CommandSpec{
		Backing: registry.Backing{Kind: registry.BackingPlugin, PluginID: "git", ToolName: "clone"},
	}

	raw, err := d.Dispatch(context.Background(), spec, Args{"url": "https://example.com/repo.git"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":true}`, string(raw))
}

type fakePluginCaller struct {
	result json.RawMessage
}

func (f fakePluginCaller) CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error) {
	return f.result, nil
}

func TestDispatchInternalInvokesRegisteredHandler(t *testing.T) {
	d := New("http://example.invalid", nil, noPlugins{})
	d.RegisterInternal("bench noop", func(ctx context.Context, args map[string]interface{}) (json.RawMessage, error) {
		return json.RawMessage(`{"noop":true}`), nil
	})

	spec := registry.CommandSpec{Group: "bench", Name: "bench noop", Backing: registry.Backing{Kind: registry.BackingInternal}}
	raw, err := d.Dispatch(context.Background(), spec, Args{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"noop":true}`, string(raw))
}

func TestDispatchInternalUnregisteredFails(t *testing.T) {
	d := New("http://example.invalid", nil, noPlugins{})
	spec := registry.CommandSpec{Group: "bench", Name: "bench ghost", Backing: registry.Backing{Kind: registry.BackingInternal}}
	_, err := d.Dispatch(context.Background(), spec, Args{})
	assert.Error(t, err)
}

func TestPercentEncodePreservesUnreservedSet(t *testing.T) {
	assert.Equal(t, "abcXYZ012-._~", percentEncodeSegment("abcXYZ012-._~"))
	assert.Equal(t, "a%20b%2Fc", percentEncodeSegment("a b/c"))
}
