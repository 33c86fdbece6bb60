package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/rpc"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestUpstreamChecker(t *testing.T) {
	srv := newUpstream(t)
	reg := rpc.NewRegistry()
	reg.MustRegister("$get", "/users")
	client, err := rpc.New(srv.URL, rpc.WithRegistry(reg))
	if err != nil {
		t.Fatalf("rpc.New() error = %v", err)
	}

	tests := []struct {
		path       string
		wantStatus Status
		wantCode   int
	}{
		{"/health", StatusHealthy, 200},
		{"/missing", StatusDegraded, 404},
		{"/boom", StatusUnhealthy, 502},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c := NewUpstreamChecker(client, tt.path)
			r := c.Check(context.Background())
			if r.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v (%s)", r.Status, tt.wantStatus, r.Message)
			}
			if r.Details["status"] != tt.wantCode {
				t.Errorf("details status = %v, want %d", r.Details["status"], tt.wantCode)
			}
		})
	}
}

func TestUpstreamChecker_Unreachable(t *testing.T) {
	srv := newUpstream(t)
	client, err := rpc.New(srv.URL)
	if err != nil {
		t.Fatalf("rpc.New() error = %v", err)
	}
	srv.Close()

	r := NewUpstreamChecker(client, "/health").Check(context.Background())
	if r.Status != StatusUnhealthy || r.Error == nil {
		t.Errorf("Check() = %+v, want unhealthy with an error", r)
	}
}

func tripped(set *resilience.BreakerSet, route string) {
	_ = set.Execute(context.Background(), route, func(context.Context) error {
		return errors.New("connection refused")
	})
}

func TestBreakerChecker(t *testing.T) {
	set := resilience.NewBreakerSet(resilience.CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute})
	c := NewBreakerChecker(set)
	if c.Check(context.Background()).Status != StatusHealthy {
		t.Error("empty set not healthy")
	}

	set.Get("GET /users")
	set.Get("GET /users/:id")
	if r := c.Check(context.Background()); r.Status != StatusHealthy || r.Details["GET /users"] != "closed" {
		t.Errorf("closed breakers = %+v", r)
	}

	tripped(set, "GET /users")
	if r := c.Check(context.Background()); r.Status != StatusDegraded || r.Details["GET /users"] != "open" {
		t.Errorf("one open breaker = %+v", r)
	}

	tripped(set, "GET /users/:id")
	r := c.Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, resilience.ErrCircuitOpen) {
		t.Errorf("all open breakers = %+v", r)
	}

	if NewBreakerChecker(nil).Check(context.Background()).Status != StatusHealthy {
		t.Error("nil set not healthy")
	}
}

// brokenCache fails writes or returns other bytes on read.
type brokenCache struct {
	*cache.MemoryCache
	writeErr error
	garble   bool
}

func (b *brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.MemoryCache.Set(ctx, key, value, ttl)
}

func (b *brokenCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := b.MemoryCache.Get(ctx, key)
	if b.garble && ok {
		return []byte("other"), true
	}
	return v, ok
}

func TestCacheChecker(t *testing.T) {
	store := cache.NewMemoryCache()
	r := NewCacheChecker(store).Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("Check() = %+v", r)
	}
	if store.Len() != 0 {
		t.Errorf("probe key left behind: %d entries", store.Len())
	}

	diskFull := errors.New("disk full")
	r = NewCacheChecker(&brokenCache{MemoryCache: cache.NewMemoryCache(), writeErr: diskFull}).Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, diskFull) {
		t.Errorf("write failure = %+v", r)
	}

	r = NewCacheChecker(&brokenCache{MemoryCache: cache.NewMemoryCache(), garble: true}).Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrProbeMismatch) {
		t.Errorf("garbled read = %+v", r)
	}
}
