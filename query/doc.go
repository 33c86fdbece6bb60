// Package query caches RPC results by query key.
//
// A Client stores one entry per querykey.Key and serves it while it is
// fresh. Concurrent fetches of the same key share one request, transient
// failures are retried, and results can be written through to a
// cache.Persister so they survive restarts.
//
// A Binder connects a Client to an rpc.Client: given a path, a method and
// an input it derives the key and the fetch function, so callers never
// build either by hand.
//
//	b := query.Bind(rpcClient, query.NewClient())
//	res, err := b.Query(ctx, "/users/:id", "$get", query.Payload{
//	    Input: rpc.Input{Param: map[string]string{"id": "42"}},
//	})
//
// After a mutation, InvalidateQueries marks related queries stale:
//
//	_, err = b.Mutate(ctx, "/users", "$post", rpc.Input{JSON: newUser})
//	_ = b.InvalidateQueries(ctx, "/users", "$get", rpc.Input{}, query.Filters{})
//
// # Errors
//
// Query functions report server failures as *response.Error. By default
// Binder.Query returns them as errors; WithThrowOnError(false) turns them
// into results instead. Errors are never cached as data.
package query
