package query

import (
	"context"
	"time"

	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/observe"
	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
)

// Default timings.
const (
	DefaultGCTime          = 5 * time.Minute
	DefaultRetryAttempts   = 4
	DefaultRefetchParallel = 8
)

// QueryFunc fetches the result for key.
type QueryFunc func(ctx context.Context, key querykey.Key) (*response.Result, error)

// QueryOptions describes one query.
type QueryOptions struct {
	// Key identifies the query.
	Key querykey.Key

	// Fn fetches the data. It may be nil when an earlier fetch of the same
	// key registered one.
	Fn QueryFunc

	// StaleTime is how long fetched data stays fresh. Zero uses the client
	// default; a negative value means always stale.
	StaleTime time.Duration

	// GCTime is how long an unused entry is kept. Zero uses the client
	// default.
	GCTime time.Duration

	// Retry overrides the client's retry policy.
	Retry *resilience.Retry

	// PersistTTL overrides the persister's default TTL.
	PersistTTL time.Duration
}

// Defaults are applied to zero QueryOptions fields.
type Defaults struct {
	// StaleTime default: 0, data is stale as soon as it is fetched.
	StaleTime time.Duration

	// GCTime default: 5m
	GCTime time.Duration

	// Retry default: 4 attempts, exponential backoff from 1s capped at 30s,
	// retrying transport errors and transient response errors only.
	Retry *resilience.Retry
}

// DefaultRetry returns the default query retry policy.
func DefaultRetry() *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	})
}

// RefetchType selects which invalidated queries are refetched.
type RefetchType int

const (
	// RefetchNone only marks matching queries stale; the next fetch
	// reloads them.
	RefetchNone RefetchType = iota
	// RefetchAll refetches every matching query that has a query function.
	RefetchAll
)

// Filters select cached queries.
type Filters struct {
	// Key is matched as a prefix unless Exact is set. An empty key matches
	// every query.
	Key querykey.Key

	// Exact requires the whole key to be equal.
	Exact bool

	// Predicate, when set, must also return true. It runs without the
	// client lock held and may call back into the client.
	Predicate func(QueryState) bool

	// RefetchType applies to InvalidateQueries.
	RefetchType RefetchType
}

// Option configures a Client.
type Option func(*Client)

// WithDefaults sets the defaults for zero QueryOptions fields.
func WithDefaults(d Defaults) Option {
	return func(c *Client) { c.defaults = d }
}

// WithPersister writes successful results through to p and restores them
// on a miss.
func WithPersister(p *cache.Persister) Option {
	return func(c *Client) { c.persister = p }
}

// WithMiddleware instruments fetches and mutations.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.middleware = mw }
}

// WithLogger sets the logger for cache events.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRefetchParallelism bounds concurrent refetches and prefetches.
// Default: 8
func WithRefetchParallelism(n int) Option {
	return func(c *Client) { c.parallel = n }
}
