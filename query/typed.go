package query

import (
	"context"
	"slices"

	"github.com/jonwraymond/rpcquery/rpc"
)

// TypedResult is a query or mutation result with decoded data.
type TypedResult[Out any] = rpc.Result[Out]

// UseQuery fetches a typed route through the cache. Response errors are
// always returned as errors, since Out cannot hold the error shape.
func UseQuery[In, Out any](ctx context.Context, b *Binder, route rpc.Route[In, Out], in In, opts ...QueryOption) (*TypedResult[Out], error) {
	input, err := route.Input(in)
	if err != nil {
		return nil, err
	}
	res, err := b.Query(ctx, route.Path, route.Method, Payload{Input: input},
		slices.Concat(opts, []QueryOption{WithThrowOnError(true)})...)
	if err != nil {
		return nil, err
	}
	return rpc.Decode[Out](res)
}

// UseMutation sends in to a typed route.
func UseMutation[In, Out any](ctx context.Context, b *Binder, route rpc.Route[In, Out], in In, reqOpts ...rpc.RequestOption) (*TypedResult[Out], error) {
	input, err := route.Input(in)
	if err != nil {
		return nil, err
	}
	res, err := b.Mutate(ctx, route.Path, route.Method, input, reqOpts...)
	if err != nil {
		return nil, err
	}
	return rpc.Decode[Out](res)
}
