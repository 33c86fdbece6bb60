package config

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/health"
	"github.com/jonwraymond/rpcquery/query"
	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/response"
	"github.com/jonwraymond/rpcquery/rpc"
)

func mustParse(t *testing.T, doc string) *Config {
	t.Helper()
	cfg, err := Parse(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func TestHeaderProvider(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, secret, ok := r.BasicAuth(); !ok || id != "web" || secret != "pw" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"cc-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()

	tests := []struct {
		name   string
		auth   AuthConfig
		header string
		want   string
	}{
		{"apikey default header", AuthConfig{Type: AuthAPIKey, APIKey: "k1"}, "X-API-Key", "k1"},
		{"apikey with scheme", AuthConfig{Type: AuthAPIKey, APIKey: "k1", Header: "Authorization", Scheme: "ApiKey"}, "Authorization", "ApiKey k1"},
		{"bearer", AuthConfig{Type: AuthBearer, Token: "t0"}, "Authorization", "Bearer t0"},
		{"client credentials", AuthConfig{Type: AuthClientCredentials, TokenURL: tokens.URL, ClientID: "web", ClientSecret: "pw"}, "Authorization", "Bearer cc-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Client: ClientConfig{Auth: tt.auth}}
			p, err := cfg.HeaderProvider()
			if err != nil {
				t.Fatalf("HeaderProvider() error = %v", err)
			}
			h, err := p.Headers(context.Background())
			if err != nil {
				t.Fatalf("Headers() error = %v", err)
			}
			if got := h.Get(tt.header); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestHeaderProvider_None(t *testing.T) {
	for _, typ := range []string{"", AuthNone} {
		cfg := &Config{Client: ClientConfig{Auth: AuthConfig{Type: typ}}}
		p, err := cfg.HeaderProvider()
		if err != nil || p != nil {
			t.Errorf("HeaderProvider(%q) = %v, %v, want nil, nil", typ, p, err)
		}
	}

	cfg := &Config{Client: ClientConfig{Auth: AuthConfig{Type: "ntlm"}}}
	if _, err := cfg.HeaderProvider(); !errors.Is(err, ErrInvalidAuth) {
		t.Errorf("HeaderProvider(ntlm) error = %v, want ErrInvalidAuth", err)
	}
}

func TestHeaderProvider_JWT(t *testing.T) {
	cfg := &Config{Client: ClientConfig{Auth: AuthConfig{
		Type:          AuthJWT,
		SigningKey:    "signing-key",
		Issuer:        "rpcquery",
		Audience:      []string{"users-api"},
		TTL:           Duration(time.Minute),
		RefreshBefore: Duration(10 * time.Second),
	}}}
	p, err := cfg.HeaderProvider()
	if err != nil {
		t.Fatalf("HeaderProvider() error = %v", err)
	}
	h, err := p.Headers(context.Background())
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}

	raw, ok := strings.CutPrefix(h.Get("Authorization"), "Bearer ")
	if !ok {
		t.Fatalf("Authorization = %q, want a bearer token", h.Get("Authorization"))
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte("signing-key"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer("rpcquery"), jwt.WithAudience("users-api"))
	if err != nil || !tok.Valid {
		t.Errorf("jwt.Parse() = %v, %v", tok, err)
	}
}

func TestNewRPCClient(t *testing.T) {
	var mu sync.Mutex
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = r.Header.Clone()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := mustParse(t, `
client:
  baseUrl: `+srv.URL+`
  headers: { X-Client: web }
  requestIdHeader: X-Request-ID
  timeout: 5s
  auth: { type: apikey, apiKey: k1 }
  rateLimit: { rate: 100, burst: 10 }
  maxConcurrent: 4
`)
	rc, err := cfg.NewRPCClient()
	if err != nil {
		t.Fatalf("NewRPCClient() error = %v", err)
	}
	if rc.HTTPClient().Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", rc.HTTPClient().Timeout)
	}
	if rc.Breakers() != nil {
		t.Error("Breakers() != nil without circuitBreaker.maxFailures")
	}

	res, err := rc.Call(context.Background(), "/ping", "GET", rpc.Input{})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if res.Status != http.StatusOK || res.Format != response.FormatJSON {
		t.Errorf("Call() = %+v", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.Get("X-Client") != "web" {
		t.Errorf("X-Client = %q, want web", got.Get("X-Client"))
	}
	if got.Get("X-API-Key") != "k1" {
		t.Errorf("X-API-Key = %q, want k1", got.Get("X-API-Key"))
	}
	if got.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestNewRPCClient_CircuitBreaker(t *testing.T) {
	cfg := mustParse(t, "client:\n  baseUrl: https://api.test\n  circuitBreaker:\n    maxFailures: 2\n    resetTimeout: 1s\n")
	rc, err := cfg.NewRPCClient()
	if err != nil {
		t.Fatalf("NewRPCClient() error = %v", err)
	}
	if rc.Breakers() == nil {
		t.Fatal("Breakers() = nil with maxFailures set")
	}
}

func TestNewRPCClient_ExtraOptionsApplyLast(t *testing.T) {
	cfg := mustParse(t, "client:\n  baseUrl: https://api.test\n  timeout: 5s\n")
	rc, err := cfg.NewRPCClient(rpc.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewRPCClient() error = %v", err)
	}
	if rc.HTTPClient().Timeout != time.Second {
		t.Errorf("Timeout = %v, want the extra option's 1s", rc.HTTPClient().Timeout)
	}
}

func TestQueryDefaults(t *testing.T) {
	cfg := mustParse(t, "client:\n  baseUrl: https://api.test\nquery:\n  staleTime: 30s\n  gcTime: 2m\n")
	d := cfg.QueryDefaults()
	if d.StaleTime != 30*time.Second || d.GCTime != 2*time.Minute {
		t.Errorf("QueryDefaults() = %+v", d)
	}
	if d.Retry != nil {
		t.Error("Retry set without query.retry")
	}

	cfg = mustParse(t, "client:\n  baseUrl: https://api.test\nquery:\n  retry: 2\n  retryDelay: 100ms\n  maxRetryDelay: 1s\n")
	rc := cfg.QueryDefaults().Retry.Config()
	if rc.MaxAttempts != 3 || rc.InitialDelay != 100*time.Millisecond || rc.MaxDelay != time.Second {
		t.Errorf("Retry.Config() = %+v, want 3 attempts from 100ms capped at 1s", rc)
	}

	cfg = mustParse(t, "client:\n  baseUrl: https://api.test\nquery:\n  retry: 0\n")
	if got := cfg.QueryDefaults().Retry.Config().MaxAttempts; got != 1 {
		t.Errorf("MaxAttempts = %d, want 1 for retry: 0", got)
	}
}

func TestOpenStore(t *testing.T) {
	cfg := mustParse(t, "client:\n  baseUrl: https://api.test\n")
	store, err := cfg.OpenStore()
	if err != nil || store != nil {
		t.Errorf("OpenStore(none) = %v, %v, want nil, nil", store, err)
	}
	if cfg.NewPersister(store) != nil {
		t.Error("NewPersister(nil) != nil")
	}

	cfg.Persist.Backend = BackendMemory
	store, err = cfg.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore(memory) error = %v", err)
	}
	if _, ok := store.(*cache.MemoryCache); !ok {
		t.Errorf("OpenStore(memory) = %T", store)
	}

	cfg.Persist.Backend = BackendLevelDB
	cfg.Persist.Path = filepath.Join(t.TempDir(), "db")
	store, err = cfg.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore(leveldb) error = %v", err)
	}
	closer, ok := store.(io.Closer)
	if !ok {
		t.Fatalf("OpenStore(leveldb) = %T, want an io.Closer", store)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewQueryClient_Persists(t *testing.T) {
	cfg := mustParse(t, "client:\n  baseUrl: https://api.test\npersist:\n  backend: memory\n  ttl: 1m\n")
	store, err := cfg.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if p := cfg.Policy(); p.DefaultTTL != time.Minute || p.MaxTTL != time.Hour {
		t.Errorf("Policy() = %+v", p)
	}

	qc := cfg.NewQueryClient(store)
	key := querykey.CreateQueryKey("get", "/users", nil)
	_, err = qc.FetchQuery(context.Background(), query.QueryOptions{
		Key: key,
		Fn: func(context.Context, querykey.Key) (*response.Result, error) {
			return &response.Result{Data: "users", Status: 200, Format: response.FormatText}, nil
		},
	})
	if err != nil {
		t.Fatalf("FetchQuery() error = %v", err)
	}

	entry, ok := cfg.NewPersister(store).Load(context.Background(), key)
	if !ok {
		t.Fatal("result not persisted")
	}
	if entry.Result.Data != "users" {
		t.Errorf("persisted Data = %v, want users", entry.Result.Data)
	}
}

func TestHealthAggregator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	cfg := mustParse(t, `
client:
  baseUrl: `+srv.URL+`
  circuitBreaker: { maxFailures: 3 }
persist:
  backend: memory
health:
  probePath: /healthz
  timeout: 2s
`)
	rc, err := cfg.NewRPCClient()
	if err != nil {
		t.Fatalf("NewRPCClient() error = %v", err)
	}
	store, err := cfg.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}

	agg := cfg.HealthAggregator(rc, store)
	if got, want := agg.Names(), []string{"upstream", "breakers", "cache"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	results := agg.CheckAll(context.Background())
	if got := health.Overall(results); got != health.StatusHealthy {
		t.Errorf("Overall() = %v, results %+v", got, results)
	}

	bare := mustParse(t, "client:\n  baseUrl: "+srv.URL+"\n")
	rc, err = bare.NewRPCClient()
	if err != nil {
		t.Fatalf("NewRPCClient() error = %v", err)
	}
	if names := bare.HealthAggregator(rc, nil).Names(); len(names) != 0 {
		t.Errorf("Names() = %v, want none", names)
	}
}
