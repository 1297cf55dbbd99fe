// Package dispatch implements CommandDispatcher: turning a resolved
// CommandSpec plus prepared arguments into either an HTTP request
// against the platform API or a forwarded call to a connected plugin.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/pkg/logging"
)

// DefaultTimeout is the request timeout applied to every HTTP dispatch.
const DefaultTimeout = 30 * time.Second

// Vendor names the media-type vendor tree used in the Accept header.
const Vendor = "bench"

// TokenSource supplies the bearer token injected into every HTTP
// request. The config surface's implementation, config.EnvTokenSource,
// reads it from the BENCH_API_KEY environment variable only; no local
// credentials file is read.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PluginCaller is the subset of PluginHost needed to forward a Plugin-
// backed command, declared at the point of use.
type PluginCaller interface {
	CallTool(ctx context.Context, pluginName, toolName string, args map[string]interface{}) (json.RawMessage, error)
}

// InternalHandler is a registered closure backing an Internal command.
type InternalHandler func(ctx context.Context, args map[string]interface{}) (json.RawMessage, error)

// Dispatcher implements CommandDispatcher.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	plugins    PluginCaller
	internal   map[string]InternalHandler
}

// New builds a Dispatcher issuing HTTP requests against baseURL.
func New(baseURL string, tokens TokenSource, plugins PluginCaller) *Dispatcher {
	return &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     tokens,
		plugins:    plugins,
		internal:   make(map[string]InternalHandler),
	}
}

// RegisterInternal attaches a closure backing an Internal command.
func (d *Dispatcher) RegisterInternal(name string, handler InternalHandler) {
	d.internal[name] = handler
}

// args is the {positional, flags, body} triple the dispatcher consumes.
// args carries a flattened view: keys matching a positional arg name are
// substituted into the path template; the optional "__body" key, when
// present, is used verbatim as the JSON body instead of serializing the
// remaining flags.
type Args = map[string]interface{}

// Dispatch routes spec.Backing to the matching transport.
func (d *Dispatcher) Dispatch(ctx context.Context, spec registry.CommandSpec, args Args) (json.RawMessage, error) {
	switch spec.Backing.Kind {
	case registry.BackingHTTP:
		return d.dispatchHTTP(ctx, spec, args)
	case registry.BackingPlugin:
		return d.plugins.CallTool(ctx, spec.Backing.PluginID, spec.Backing.ToolName, args)
	case registry.BackingInternal:
		handler, ok := d.internal[spec.CanonicalID()]
		if !ok {
			return nil, apperr.NotFoundf("internal command handler", spec.CanonicalID())
		}
		return handler(ctx, args)
	default:
		return nil, apperr.New(apperr.Internal, "unknown_backing", "command has no recognized backing kind")
	}
}

func (d *Dispatcher) dispatchHTTP(ctx context.Context, spec registry.CommandSpec, args Args) (json.RawMessage, error) {
	remaining := make(Args, len(args))
	for k, v := range args {
		remaining[k] = v
	}
	body := remaining["__body"]
	delete(remaining, "__body")

	path, err := substitutePathTemplate(spec.Backing.PathTemplate, spec.PositionalArgs, remaining)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(spec.Backing.Method)
	reqURL := d.baseURL + path

	var reqBody io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete:
		if q := buildQuery(remaining); q != "" {
			reqURL += "?" + q
		}
	case http.MethodPost, http.MethodPatch, http.MethodPut:
		payload := body
		if payload == nil {
			payload = remaining
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "marshal_body", "could not marshal request body", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build_request", "could not build HTTP request", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", fmt.Sprintf("application/vnd.%s+json; version=3", Vendor))

	if d.tokens != nil {
		token, err := d.tokens.Token(ctx)
		if err != nil {
			return nil, apperr.Wrap(apperr.Unauthorized, "token_unavailable", "could not obtain an auth token", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logging.Debug("dispatch", "%s %s", method, reqURL)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transport, "request_failed", "request to platform API failed", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, apperr.Wrap(apperr.Transport, "read_response", "could not read response body", readErr)
	}

	return classifyResponse(resp.StatusCode, data)
}

func classifyResponse(status int, data []byte) (json.RawMessage, error) {
	switch {
	case status == http.StatusUnauthorized:
		return nil, apperr.New(apperr.Unauthorized, "unauthorized", "request was rejected for missing or invalid credentials").
			WithSuggestion("check that your auth token is set and has not expired")
	case status == http.StatusForbidden:
		return nil, apperr.New(apperr.Forbidden, "forbidden", "request was rejected: insufficient permissions")
	case status >= 500:
		return nil, apperr.New(apperr.Transport, "server_error", fmt.Sprintf("platform API returned status %d", status)).
			WithRetryable(true)
	case status >= 400:
		return nil, apperr.New(apperr.Validation, "request_rejected", fmt.Sprintf("platform API rejected the request (status %d)", status)).
			WithContext(string(data))
	}

	if len(data) == 0 {
		return json.RawMessage(`null`), nil
	}
	if !json.Valid(data) {
		return json.RawMessage(`null`), nil
	}
	return json.RawMessage(data), nil
}

// unreservedRunes is RFC3986's unreserved set, preserved as-is by
// substitutePathTemplate; every other byte (including "/" and spaces)
// is percent-encoded.
const unreservedRunes = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

func percentEncodeSegment(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(unreservedRunes, c) >= 0 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func substitutePathTemplate(tmpl string, positional []registry.PositionalArg, remaining Args) (string, error) {
	path := tmpl
	for _, p := range positional {
		placeholder := "{" + p.Name + "}"
		if !strings.Contains(path, placeholder) {
			continue
		}
		raw, ok := remaining[p.Name]
		if !ok {
			return "", apperr.Validationf("positional."+p.Name, "missing_positional", "missing required path argument %q", p.Name)
		}
		path = strings.ReplaceAll(path, placeholder, percentEncodeSegment(fmt.Sprintf("%v", raw)))
		delete(remaining, p.Name)
	}
	return path, nil
}

func buildQuery(remaining Args) string {
	values := url.Values{}
	for k, v := range remaining {
		if v == nil {
			continue
		}
		values.Set(k, fmt.Sprintf("%v", v))
	}
	return values.Encode()
}
