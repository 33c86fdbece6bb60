package query

import (
	"context"

	"github.com/jonwraymond/rpcquery/observe"
	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
)

// MutationOptions describes a mutation taking variables of type V.
//
// Callbacks run in order: OnMutate before Fn, then OnSuccess or OnError,
// then OnSettled. The value returned by OnMutate is passed to the later
// callbacks, which makes it the place to keep rollback state.
type MutationOptions[V any] struct {
	// Key names the mutation for telemetry. Usually [METHOD, path].
	Key querykey.Key

	// Fn performs the mutation.
	Fn func(ctx context.Context, vars V) (*response.Result, error)

	// Retry defaults to no retries.
	Retry *resilience.Retry

	OnMutate  func(ctx context.Context, vars V) (any, error)
	OnSuccess func(ctx context.Context, res *response.Result, vars V, mctx any)
	OnError   func(ctx context.Context, err error, vars V, mctx any)
	OnSettled func(ctx context.Context, res *response.Result, err error, vars V, mctx any)
}

// Mutate runs a mutation. Its result is never cached; use the callbacks to
// update or invalidate queries.
func Mutate[V any](ctx context.Context, c *Client, opts MutationOptions[V], vars V) (*response.Result, error) {
	if opts.Fn == nil {
		return nil, ErrNoMutationFn
	}

	var mctx any
	if opts.OnMutate != nil {
		v, err := opts.OnMutate(ctx, vars)
		if err != nil {
			settle(ctx, opts, nil, err, vars, nil)
			return nil, err
		}
		mctx = v
	}

	retry := opts.Retry
	if retry == nil {
		retry = resilience.NoRetry()
	}
	exec := resilience.NewExecutor(resilience.WithRetry(retry))
	meta := observe.OperationMeta{Kind: observe.KindMutation, Method: opts.Key.Method(), Path: opts.Key.Path()}

	var mw *observe.Middleware
	if c != nil {
		mw = c.middleware
	}
	res, err := mw.Run(ctx, meta, func(ctx context.Context, _ observe.OperationMeta) (*response.Result, error) {
		return resilience.Do(ctx, exec, func(ctx context.Context) (*response.Result, error) {
			return opts.Fn(ctx, vars)
		})
	})

	settle(ctx, opts, res, err, vars, mctx)
	return res, err
}

func settle[V any](ctx context.Context, opts MutationOptions[V], res *response.Result, err error, vars V, mctx any) {
	if err != nil {
		if opts.OnError != nil {
			opts.OnError(ctx, err, vars, mctx)
		}
	} else if opts.OnSuccess != nil {
		opts.OnSuccess(ctx, res, vars, mctx)
	}
	if opts.OnSettled != nil {
		opts.OnSettled(ctx, res, err, vars, mctx)
	}
}
