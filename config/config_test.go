package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/rpcquery/secret"
)

func TestLoad_Testdata(t *testing.T) {
	t.Setenv("RPCQUERY_API_URL", "https://api.example.com/v1")
	t.Setenv("RPCQUERY_API_KEY", "k-123")

	cfg, err := Load(context.Background(), filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Client.BaseURL != "https://api.example.com/v1" {
		t.Errorf("BaseURL = %q", cfg.Client.BaseURL)
	}
	wantHeaders := map[string]string{"X-Client": "web", "X-Price": "$5"}
	if !reflect.DeepEqual(cfg.Client.Headers, wantHeaders) {
		t.Errorf("Headers = %v, want %v", cfg.Client.Headers, wantHeaders)
	}
	if cfg.Client.Auth.APIKey != "k-123" {
		t.Errorf("Auth.APIKey = %q, want k-123", cfg.Client.Auth.APIKey)
	}
	if cfg.Client.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.Client.Timeout.Std())
	}
	if cfg.Client.RateLimit.Wait.Std() != 250*time.Millisecond {
		t.Errorf("RateLimit.Wait = %v, want 250ms", cfg.Client.RateLimit.Wait.Std())
	}
	if cfg.Client.CircuitBreaker.ResetTimeout.Std() != time.Minute {
		t.Errorf("ResetTimeout = %v", cfg.Client.CircuitBreaker.ResetTimeout.Std())
	}
	if cfg.Query.Retry == nil || *cfg.Query.Retry != 2 {
		t.Errorf("Query.Retry = %v, want 2", cfg.Query.Retry)
	}
	if cfg.Persist.Backend != BackendMemory || cfg.Persist.TTL.Std() != 15*time.Minute {
		t.Errorf("Persist = %+v", cfg.Persist)
	}
	if cfg.Persist.MaxTTL.Std() != time.Hour {
		t.Errorf("Persist.MaxTTL = %v, want default 1h", cfg.Persist.MaxTTL.Std())
	}
	if cfg.Observe.ServiceName != "users-web" || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("Observe = %+v", cfg.Observe)
	}
	if cfg.Health.ProbePath != "/healthz" || cfg.Health.Timeout.Std() != 5*time.Second {
		t.Errorf("Health = %+v", cfg.Health)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte("client:\n  baseUrl: https://api.test\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Client.Auth.Type != AuthNone {
		t.Errorf("Auth.Type = %q, want none", cfg.Client.Auth.Type)
	}
	if cfg.Client.Auth.RefreshBefore.Std() != 30*time.Second {
		t.Errorf("RefreshBefore = %v, want 30s", cfg.Client.Auth.RefreshBefore.Std())
	}
	if cfg.Persist.Backend != BackendNone {
		t.Errorf("Persist.Backend = %q, want none", cfg.Persist.Backend)
	}
	if cfg.Query.Retry != nil {
		t.Errorf("Query.Retry = %v, want unset", *cfg.Query.Retry)
	}
	obs := cfg.ObserveConfig()
	if obs.ServiceName != "rpcquery" || obs.Tracing.Exporter != "none" || obs.Metrics.Exporter != "none" || obs.Logging.Level != "info" {
		t.Errorf("ObserveConfig() = %+v", obs)
	}
}

func TestParse_Errors(t *testing.T) {
	const base = "client:\n  baseUrl: https://api.test\n"

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"empty document", "", ErrMissingBaseURL},
		{"relative base url", "client:\n  baseUrl: /api\n", ErrInvalidValue},
		{"negative timeout", base + "  timeout: -1s\n", ErrInvalidValue},
		{"bad duration", base + "  timeout: soon\n", ErrInvalidValue},
		{"unknown auth type", base + "  auth:\n    type: kerberos\n", ErrInvalidAuth},
		{"apikey without key", base + "  auth:\n    type: apikey\n", ErrInvalidAuth},
		{"bearer without token", base + "  auth:\n    type: bearer\n", ErrInvalidAuth},
		{"jwt without key", base + "  auth:\n    type: jwt\n", ErrInvalidAuth},
		{"client credentials without id", base + "  auth:\n    type: client-credentials\n    tokenUrl: https://idp.test/token\n", ErrInvalidAuth},
		{"negative retry", base + "query:\n  retry: -1\n", ErrInvalidValue},
		{"unknown backend", base + "persist:\n  backend: redis\n", ErrInvalidBackend},
		{"leveldb without path", base + "persist:\n  backend: leveldb\n", ErrMissingPath},
		{"max ttl below ttl", base + "persist:\n  ttl: 2h\n", ErrInvalidValue},
		{"unset variable", "client:\n  baseUrl: ${RPCQUERY_TEST_NEVER_SET}\n", secret.ErrMissingEnv},
		{"unknown secret provider", base + "secrets:\n  vault: {}\n", secret.ErrProviderNotRegistered},
		{"unregistered ref", base + "  auth:\n    type: bearer\n    token: secretref:vault:api\n", secret.ErrProviderNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), []byte(tt.yaml))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(context.Background(), []byte("client:\n  baseUrl: https://api.test\n  retries: 3\n"))
	if err == nil || !strings.Contains(err.Error(), "retries") {
		t.Errorf("Parse() error = %v, want unknown field error", err)
	}
}

func TestParse_InvalidObserve(t *testing.T) {
	doc := "client:\n  baseUrl: https://api.test\nobserve:\n  tracing:\n    enabled: true\n    exporter: zipkin\n"
	if _, err := Parse(context.Background(), []byte(doc)); err == nil {
		t.Error("Parse() error = nil for an unknown tracing exporter")
	}
}

func TestParse_FileSecrets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RPCQUERY_SECRET_DIR", dir)
	t.Setenv("RPCQUERY_TENANT", "acme")

	doc := `
client:
  baseUrl: https://api.test
  headers:
    X-Auth: "Token secretref:file:token"
    X-Tenant: secretref:env:RPCQUERY_TENANT
  auth:
    type: bearer
    token: secretref:file:token
secrets:
  file:
    dir: ${RPCQUERY_SECRET_DIR}
`
	cfg, err := Parse(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Client.Auth.Token != "s3cret" {
		t.Errorf("Auth.Token = %q, want s3cret", cfg.Client.Auth.Token)
	}
	if got := cfg.Client.Headers["X-Auth"]; got != "Token s3cret" {
		t.Errorf("X-Auth = %q, want inline replacement", got)
	}
	if got := cfg.Client.Headers["X-Tenant"]; got != "acme" {
		t.Errorf("X-Tenant = %q, want acme", got)
	}
}

func TestParse_FileSecretMissing(t *testing.T) {
	doc := "client:\n  baseUrl: https://api.test\n  auth:\n    type: bearer\n    token: secretref:file:absent\nsecrets:\n  file:\n    dir: " + t.TempDir() + "\n"
	_, err := Parse(context.Background(), []byte(doc))
	if !errors.Is(err, secret.ErrNotFound) {
		t.Fatalf("Parse() error = %v, want secret.ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "client.auth.token") {
		t.Errorf("Parse() error = %v, want the field name", err)
	}
}

func TestDuration_YAML(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1500", 1500 * time.Millisecond},
		{"0", 0},
		{"1m30s", 90 * time.Second},
		{`"45s"`, 45 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			if err := yaml.Unmarshal([]byte(tt.in), &d); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if d.Std() != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, d.Std(), tt.want)
			}
		})
	}

	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{Duration(90 * time.Second)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != "d: 1m30s\n" {
		t.Errorf("Marshal() = %q", out)
	}

	var d Duration
	if err := yaml.Unmarshal([]byte("[1, 2]"), &d); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Unmarshal(sequence) error = %v, want ErrInvalidValue", err)
	}
}
