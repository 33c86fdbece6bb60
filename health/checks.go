package health

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/rpc"
)

// UpstreamChecker probes the API behind an rpc client with a GET request.
//
// A 2xx or 3xx response is Healthy, 4xx is Degraded since the server
// answered, and a 5xx response or transport error is Unhealthy.
type UpstreamChecker struct {
	client *rpc.Client
	path   string
}

// NewUpstreamChecker probes GET path through client. The route is not
// required to be in the client's registry.
func NewUpstreamChecker(client *rpc.Client, path string) *UpstreamChecker {
	return &UpstreamChecker{client: client, path: path}
}

// Name returns "upstream".
func (u *UpstreamChecker) Name() string { return "upstream" }

// Check sends the probe request.
func (u *UpstreamChecker) Check(ctx context.Context) Result {
	probe := rpc.RouteInfo{Method: http.MethodGet, Path: u.path}
	req, err := u.client.NewRequest(ctx, probe, rpc.Input{})
	if err != nil {
		return Unhealthy("invalid probe", err)
	}
	resp, err := u.client.HTTPClient().Do(req)
	if err != nil {
		return Unhealthy("upstream unreachable", err).WithDetails(map[string]any{"url": req.URL.String()})
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	details := map[string]any{"url": req.URL.String(), "status": resp.StatusCode}
	switch {
	case resp.StatusCode < 400:
		return Healthy("upstream reachable").WithDetails(details)
	case resp.StatusCode < 500:
		return Degraded("upstream returned " + strconv.Itoa(resp.StatusCode)).WithDetails(details)
	default:
		return Unhealthy("upstream returned "+strconv.Itoa(resp.StatusCode), ErrCheckFailed).WithDetails(details)
	}
}

// BreakerChecker reports the circuit breakers of an rpc client.
//
// No open breaker is Healthy, some open is Degraded and all open is
// Unhealthy. Half-open breakers count as closed.
type BreakerChecker struct {
	set *resilience.BreakerSet
}

// NewBreakerChecker reports on set.
func NewBreakerChecker(set *resilience.BreakerSet) *BreakerChecker {
	return &BreakerChecker{set: set}
}

// Name returns "breakers".
func (b *BreakerChecker) Name() string { return "breakers" }

// Check reads the breaker states.
func (b *BreakerChecker) Check(context.Context) Result {
	if b.set == nil {
		return Healthy("no circuit breakers")
	}
	states := b.set.States()
	details := make(map[string]any, len(states))
	var open []string
	for _, route := range slices.Sorted(maps.Keys(states)) {
		details[route] = states[route].String()
		if states[route] == resilience.StateOpen {
			open = append(open, route)
		}
	}

	switch {
	case len(open) == 0:
		return Healthy(fmt.Sprintf("%d routes closed", len(states))).WithDetails(details)
	case len(open) < len(states):
		return Degraded(fmt.Sprintf("%d of %d routes open", len(open), len(states))).WithDetails(details)
	default:
		return Unhealthy("all routes open", resilience.ErrCircuitOpen).WithDetails(details)
	}
}

// CacheChecker writes, reads back and deletes a probe key in a cache.
type CacheChecker struct {
	store cache.Cache
	key   string
}

// NewCacheChecker probes store.
func NewCacheChecker(store cache.Cache) *CacheChecker {
	return &CacheChecker{store: store, key: "rq:health:probe"}
}

// Name returns "cache".
func (c *CacheChecker) Name() string { return "cache" }

// Check round-trips the probe key.
func (c *CacheChecker) Check(ctx context.Context) Result {
	want := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := c.store.Set(ctx, c.key, want, time.Minute); err != nil {
		return Unhealthy("cache write failed", err)
	}
	defer func() { _ = c.store.Delete(context.WithoutCancel(ctx), c.key) }()

	got, ok := c.store.Get(ctx, c.key)
	if !ok || !bytes.Equal(got, want) {
		return Unhealthy("cache read back failed", ErrProbeMismatch)
	}
	return Healthy("cache writable")
}
