// Package resilience guards outgoing RPC calls and query fetches.
//
// The primitives are small and composable:
//
//   - Retry re-runs a failed fetch with capped backoff. Its default
//     predicate is IsTransient: transport failures and 5xx, 408 and 429
//     response errors are retried, other 4xx response errors are not.
//
//   - CircuitBreaker stops calling a route after repeated transient
//     failures. BreakerSet keeps one breaker per route.
//
//   - RateLimiter is a token bucket shared by every request of a client.
//
//   - Bulkhead caps in-flight requests.
//
//   - Timeout bounds one attempt.
//
// Executor composes them in a fixed order, and Do adapts the composition
// to operations that return a value:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 50})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	res, err := resilience.Do(ctx, exec, func(ctx context.Context) (*response.Result, error) {
//	    return fetch(ctx)
//	})
package resilience
