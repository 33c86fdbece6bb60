// Package health reports whether the pieces an rpc client depends on are
// usable.
//
// An Aggregator runs named Checkers concurrently under a shared timeout and
// folds their results into one Status. The built-in checkers probe the
// upstream API through an rpc.Client, report open circuit breakers and
// round-trip a key through the persistence cache.
//
//	agg := health.NewAggregator()
//	agg.Register("upstream", health.NewUpstreamChecker(rpcClient, "/health"))
//	agg.Register("breakers", health.NewBreakerChecker(breakers))
//	agg.Register("cache", health.NewCacheChecker(store))
//
//	r := chi.NewRouter()
//	r.Mount("/", health.Handler(agg))
//
// # Status
//
// Unhealthy wins over Degraded, which wins over Healthy. A check that does
// not finish before the aggregator timeout is Unhealthy with
// ErrCheckTimeout.
package health
