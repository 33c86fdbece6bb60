package query

import (
	"context"
	"time"

	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
	"github.com/jonwraymond/rpcquery/rpc"
)

// Payload is the input and per-request options of one call.
type Payload struct {
	Input   rpc.Input
	Options []rpc.RequestOption
}

type queryConfig struct {
	opts         QueryOptions
	throwOnError bool
}

// QueryOption configures a bound query.
type QueryOption func(*queryConfig)

// WithStaleTime sets QueryOptions.StaleTime.
func WithStaleTime(d time.Duration) QueryOption {
	return func(c *queryConfig) { c.opts.StaleTime = d }
}

// WithGCTime sets QueryOptions.GCTime.
func WithGCTime(d time.Duration) QueryOption {
	return func(c *queryConfig) { c.opts.GCTime = d }
}

// WithRetry sets QueryOptions.Retry.
func WithRetry(r *resilience.Retry) QueryOption {
	return func(c *queryConfig) { c.opts.Retry = r }
}

// WithPersistTTL sets QueryOptions.PersistTTL.
func WithPersistTTL(d time.Duration) QueryOption {
	return func(c *queryConfig) { c.opts.PersistTTL = d }
}

// WithThrowOnError controls how Binder.Query reports response errors. With
// false, a *response.Error is returned as a *response.Result carrying the
// same data, status and format, and a nil error.
// Default: true
func WithThrowOnError(throw bool) QueryOption {
	return func(c *queryConfig) { c.throwOnError = throw }
}

func newQueryConfig(opts []QueryOption) queryConfig {
	cfg := queryConfig{throwOnError: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// OptimisticResult is returned by Binder.OptimisticUpdate.
type OptimisticResult struct {
	Previous *response.Result
	Updated  *response.Result

	// Revert restores Previous.
	Revert func()
}

// Binder derives query keys and fetch functions from rpc routes.
//
// Every key is querykey.CreateQueryKey(METHOD, path, input payload), so
// two calls with structurally equal inputs share one cache entry.
type Binder struct {
	rpc   *rpc.Client
	query *Client
}

// Bind connects an rpc client to a query cache. A nil qc gets a new
// Client with default options.
func Bind(rc *rpc.Client, qc *Client) *Binder {
	if qc == nil {
		qc = NewClient()
	}
	return &Binder{rpc: rc, query: qc}
}

// Client returns the bound query cache.
func (b *Binder) Client() *Client {
	return b.query
}

// Key returns the query key for a call.
func (b *Binder) Key(path, method string, in rpc.Input) (querykey.Key, error) {
	m, err := rpc.NormalizeMethod(method)
	if err != nil {
		return nil, err
	}
	return querykey.CreateQueryKey(m, path, in.Payload()), nil
}

// QueryOptions builds the options for a query on path and method.
func (b *Binder) QueryOptions(path, method string, payload Payload, opts ...QueryOption) (QueryOptions, error) {
	return b.queryOptions(path, method, payload, newQueryConfig(opts))
}

func (b *Binder) queryOptions(path, method string, payload Payload, cfg queryConfig) (QueryOptions, error) {
	if b.rpc == nil {
		return QueryOptions{}, ErrNilClient
	}
	route, err := b.rpc.Route(path, method)
	if err != nil {
		return QueryOptions{}, err
	}

	qo := cfg.opts
	qo.Key = querykey.CreateQueryKey(route.Method, route.Path, payload.Input.Payload())
	qo.Fn = func(ctx context.Context, _ querykey.Key) (*response.Result, error) {
		return b.rpc.Call(ctx, route.Path, route.Method, payload.Input, payload.Options...)
	}
	return qo, nil
}

// Query fetches path and method through the cache.
func (b *Binder) Query(ctx context.Context, path, method string, payload Payload, opts ...QueryOption) (*response.Result, error) {
	cfg := newQueryConfig(opts)
	qo, err := b.queryOptions(path, method, payload, cfg)
	if err != nil {
		return nil, err
	}

	res, err := b.query.FetchQuery(ctx, qo)
	if err != nil && !cfg.throwOnError {
		if re, ok := response.AsResponseError(err); ok {
			return re.Result(), nil
		}
	}
	return res, err
}

// Prefetch fetches several bound queries concurrently.
func (b *Binder) Prefetch(ctx context.Context, queries ...QueryOptions) error {
	return b.query.PrefetchQueries(ctx, queries...)
}

// MutationOptions builds the options for a mutation on path and method.
// The mutation variables are the request input.
func (b *Binder) MutationOptions(path, method string, reqOpts ...rpc.RequestOption) (MutationOptions[rpc.Input], error) {
	if b.rpc == nil {
		return MutationOptions[rpc.Input]{}, ErrNilClient
	}
	route, err := b.rpc.Route(path, method)
	if err != nil {
		return MutationOptions[rpc.Input]{}, err
	}
	return MutationOptions[rpc.Input]{
		Key: querykey.Key{route.Method, route.Path},
		Fn: func(ctx context.Context, in rpc.Input) (*response.Result, error) {
			return b.rpc.Call(ctx, route.Path, route.Method, in, reqOpts...)
		},
	}, nil
}

// Mutate sends input to path and method without callbacks.
func (b *Binder) Mutate(ctx context.Context, path, method string, input rpc.Input, reqOpts ...rpc.RequestOption) (*response.Result, error) {
	mo, err := b.MutationOptions(path, method, reqOpts...)
	if err != nil {
		return nil, err
	}
	return Mutate(ctx, b.query, mo, input)
}

// GetQueryData returns the cached data for a call.
func (b *Binder) GetQueryData(path, method string, input rpc.Input) (*response.Result, bool) {
	key, err := b.Key(path, method, input)
	if err != nil {
		return nil, false
	}
	return b.query.GetQueryData(key)
}

// SetQueryData replaces the cached data for a call.
func (b *Binder) SetQueryData(ctx context.Context, path, method string, input rpc.Input, res *response.Result) error {
	key, err := b.Key(path, method, input)
	if err != nil {
		return err
	}
	b.query.SetQueryData(ctx, key, res)
	return nil
}

// InvalidateQueries invalidates the cached queries of a call. A zero input
// invalidates every query on path and method; otherwise f.Exact decides
// between the exact key and keys it prefixes.
func (b *Binder) InvalidateQueries(ctx context.Context, path, method string, input rpc.Input, f Filters) error {
	key, err := b.Key(path, method, input)
	if err != nil {
		return err
	}
	f.Key = key
	return b.query.InvalidateQueries(ctx, f)
}

// OptimisticUpdate replaces the cached data for a call with
// updater(previous) and returns a Revert that puts the previous data back.
func (b *Binder) OptimisticUpdate(ctx context.Context, path, method string, input rpc.Input, updater func(prev *response.Result) *response.Result) (*OptimisticResult, error) {
	key, err := b.Key(path, method, input)
	if err != nil {
		return nil, err
	}
	prev, updated := b.query.UpdateQueryData(ctx, key, updater)
	return &OptimisticResult{
		Previous: prev,
		Updated:  updated,
		Revert:   func() { b.query.SetQueryData(ctx, key, prev) },
	}, nil
}
