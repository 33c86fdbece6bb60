package rpc

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/rpcquery/auth"
	"github.com/jonwraymond/rpcquery/observe"
	"github.com/jonwraymond/rpcquery/resilience"
)

// DefaultRequestIDHeader is the header WithRequestID sets by default.
const DefaultRequestIDHeader = "X-Request-ID"

// Option configures a Client.
type Option func(*Client)

// WithRegistry restricts the client to the routes in reg. Without a
// registry any well-formed path and method is sent.
func WithRegistry(reg *Registry) Option {
	return func(c *Client) { c.registry = reg }
}

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped,
// not replaced.
// Default: http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.base = hc }
}

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithHeaderProvider adds the provider's headers to every request through
// an auth.Transport.
func WithHeaderProvider(p auth.HeaderProvider) Option {
	return func(c *Client) { c.provider = p }
}

// WithTimeout bounds each request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimiter applies rl to every request.
func WithRateLimiter(rl *resilience.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithBulkhead caps concurrent requests.
func WithBulkhead(b *resilience.Bulkhead) Option {
	return func(c *Client) { c.bulkhead = b }
}

// WithCircuitBreaker keeps one breaker per route in set. Request counts only
// transport errors as failures; Call also counts response errors the
// breaker's IsFailure accepts.
func WithCircuitBreaker(set *resilience.BreakerSet) Option {
	return func(c *Client) { c.breakers = set }
}

// WithLogger logs every request at debug level and failures at warn.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMiddleware instruments Call with spans, metrics and a log line.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.middleware = mw }
}

// WithTracing wraps the transport with otelhttp. Client spans are named
// "HTTP <METHOD> <route path>".
func WithTracing(opts ...otelhttp.Option) Option {
	return func(c *Client) {
		c.tracing = true
		c.traceOpts = append(c.traceOpts, opts...)
	}
}

// WithRequestID sets a fresh UUID on header for every request that does
// not already carry one. An empty header uses DefaultRequestIDHeader.
func WithRequestID(header string) Option {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(c *Client) { c.requestID = header }
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig)

type requestConfig struct {
	headers map[string]string
}

// WithRequestHeaders adds headers to one request. They override client and
// input headers.
func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(rc *requestConfig) {
		if rc.headers == nil {
			rc.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			rc.headers[k] = v
		}
	}
}
