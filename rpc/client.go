package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/rpcquery/auth"
	"github.com/jonwraymond/rpcquery/observe"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
)

// Client sends requests to routes under a base URL.
//
// Contract:
//   - Concurrency: safe for concurrent use once constructed.
//   - Context: every request honors ctx cancellation.
//   - Errors: transport errors are returned unmodified; route and input
//     errors wrap the package sentinels.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	registry   *Registry
	headers    map[string]string
	requestID  string
	limiter    *resilience.RateLimiter
	bulkhead   *resilience.Bulkhead
	breakers   *resilience.BreakerSet
	logger     observe.Logger
	middleware *observe.Middleware

	// construction only
	base      *http.Client
	provider  auth.HeaderProvider
	timeout   time.Duration
	tracing   bool
	traceOpts []otelhttp.Option
}

// New creates a client for baseURL, which must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: u,
		headers: make(map[string]string),
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = observe.NopLogger()
	}

	hc := http.Client{}
	if c.base != nil {
		hc = *c.base
	}
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if c.provider != nil {
		transport = auth.NewTransport(transport, c.provider)
	}
	if c.tracing {
		traceOpts := append([]otelhttp.Option{otelhttp.WithSpanNameFormatter(spanName)}, c.traceOpts...)
		transport = otelhttp.NewTransport(transport, traceOpts...)
	}
	hc.Transport = transport
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.http = &hc

	c.base, c.provider, c.traceOpts = nil, nil, nil
	return c, nil
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Registry returns the client's route registry, or nil.
func (c *Client) Registry() *Registry {
	return c.registry
}

// HTTPClient returns the wrapped HTTP client requests are sent with. It
// carries auth headers and tracing but none of the resilience guards.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Breakers returns the per-route circuit breakers, or nil.
func (c *Client) Breakers() *resilience.BreakerSet {
	return c.breakers
}

// Route resolves path and method against the registry.
func (c *Client) Route(path, method string) (RouteInfo, error) {
	if c.registry == nil {
		m, err := NormalizeMethod(method)
		if err != nil {
			return RouteInfo{}, err
		}
		if !strings.HasPrefix(path, "/") {
			return RouteInfo{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		return RouteInfo{Method: m, Path: path}, nil
	}
	info, ok := c.registry.Lookup(path, method)
	if !ok {
		return RouteInfo{}, fmt.Errorf("%w: %s %s", ErrUnknownRoute, strings.ToUpper(strings.TrimPrefix(method, "$")), path)
	}
	return info, nil
}

// Request sends one request and returns the raw response. The caller must
// close the response body.
func (c *Client) Request(ctx context.Context, path, method string, in Input, opts ...RequestOption) (*http.Response, error) {
	route, err := c.Route(path, method)
	if err != nil {
		return nil, err
	}
	return resilience.Do(ctx, c.executor(route), func(ctx context.Context) (*http.Response, error) {
		return c.send(ctx, route, in, opts)
	})
}

// Call sends one request and classifies the response. A non-2xx response
// is returned as *response.Error.
func (c *Client) Call(ctx context.Context, path, method string, in Input, opts ...RequestOption) (*response.Result, error) {
	route, err := c.Route(path, method)
	if err != nil {
		return nil, err
	}
	meta := observe.OperationMeta{Kind: observe.KindRequest, Method: route.Method, Path: route.Path}
	return c.middleware.Run(ctx, meta, func(ctx context.Context, _ observe.OperationMeta) (*response.Result, error) {
		return resilience.Do(ctx, c.executor(route), func(ctx context.Context) (*response.Result, error) {
			resp, err := c.send(ctx, route, in, opts)
			if err != nil {
				return nil, err
			}
			return response.ParseHTTP(ctx, resp)
		})
	})
}

// NewRequest builds the *http.Request for route without sending it.
func (c *Client) NewRequest(ctx context.Context, route RouteInfo, in Input, opts ...RequestOption) (*http.Request, error) {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	target, err := c.buildURL(route, in)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(withRoute(ctx, route), route.Method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, h := range []map[string]string{c.headers, in.Header, rc.headers} {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}
	if c.requestID != "" && req.Header.Get(c.requestID) == "" {
		req.Header.Set(c.requestID, uuid.NewString())
	}
	return req, nil
}

func (c *Client) send(ctx context.Context, route RouteInfo, in Input, opts []RequestOption) (*http.Response, error) {
	req, err := c.NewRequest(ctx, route, in, opts...)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithOperation(observe.OperationMeta{Kind: observe.KindRequest, Method: route.Method, Path: route.Path})
	start := time.Now()
	resp, err := c.http.Do(req)
	duration := observe.F("duration_ms", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		log.Warn(ctx, "request failed", duration, observe.F("error", err.Error()))
		return nil, err
	}
	log.Debug(ctx, "request sent", duration, observe.F("status", resp.StatusCode))
	return resp, nil
}

func (c *Client) executor(route RouteInfo) *resilience.Executor {
	if c.limiter == nil && c.bulkhead == nil && c.breakers == nil {
		return nil
	}
	var opts []resilience.ExecutorOption
	if c.limiter != nil {
		opts = append(opts, resilience.WithRateLimiter(c.limiter))
	}
	if c.bulkhead != nil {
		opts = append(opts, resilience.WithBulkhead(c.bulkhead))
	}
	if c.breakers != nil {
		opts = append(opts, resilience.WithCircuitBreaker(c.breakers.Get(route.String())))
	}
	return resilience.NewExecutor(opts...)
}

func (c *Client) buildURL(route RouteInfo, in Input) (string, error) {
	path, err := expandPath(route.Path, in.Param)
	if err != nil {
		return "", err
	}

	u := *c.baseURL
	u.RawPath = strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + path
	u.Path, err = url.PathUnescape(u.RawPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	query := c.baseURL.Query()
	for k, vs := range encodeValues(in.Query) {
		query[k] = append(query[k], vs...)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

type routeKey struct{}

func withRoute(ctx context.Context, route RouteInfo) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFromContext returns the route of the request being sent, if any.
func RouteFromContext(ctx context.Context) (RouteInfo, bool) {
	route, ok := ctx.Value(routeKey{}).(RouteInfo)
	return route, ok
}

func spanName(_ string, r *http.Request) string {
	if route, ok := RouteFromContext(r.Context()); ok {
		return "HTTP " + route.String()
	}
	return "HTTP " + r.Method
}
