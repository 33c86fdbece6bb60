package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/rpcquery/observe"
)

// Config is the root of a configuration file.
type Config struct {
	Client  ClientConfig              `yaml:"client"`
	Query   QueryConfig               `yaml:"query"`
	Persist PersistConfig             `yaml:"persist"`
	Observe ObserveConfig             `yaml:"observe"`
	Health  HealthConfig              `yaml:"health"`
	Secrets map[string]map[string]any `yaml:"secrets"`
}

// ClientConfig configures the rpc client.
type ClientConfig struct {
	BaseURL string            `yaml:"baseUrl"`
	Headers map[string]string `yaml:"headers"`

	// Timeout bounds each request including the body read. Zero means none.
	Timeout Duration `yaml:"timeout"`

	// RequestIDHeader enables request IDs when set.
	RequestIDHeader string `yaml:"requestIdHeader"`

	Auth           AuthConfig      `yaml:"auth"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	MaxConcurrent  int             `yaml:"maxConcurrent"`
	CircuitBreaker BreakerConfig   `yaml:"circuitBreaker"`
}

// Auth types.
const (
	AuthNone              = "none"
	AuthAPIKey            = "apikey"
	AuthBearer            = "bearer"
	AuthJWT               = "jwt"
	AuthClientCredentials = "client-credentials"
)

// AuthConfig selects how outgoing requests authenticate.
type AuthConfig struct {
	// Type is one of none, apikey, bearer, jwt, client-credentials.
	// Default: none
	Type string `yaml:"type"`

	// apikey
	APIKey string `yaml:"apiKey"`
	Header string `yaml:"header"`
	Scheme string `yaml:"scheme"`

	// bearer
	Token string `yaml:"token"`

	// jwt, signed with HS256
	SigningKey string   `yaml:"signingKey"`
	Issuer     string   `yaml:"issuer"`
	Subject    string   `yaml:"subject"`
	Audience   []string `yaml:"audience"`
	TTL        Duration `yaml:"ttl"`

	// client-credentials
	TokenURL     string   `yaml:"tokenUrl"`
	ClientID     string   `yaml:"clientId"`
	ClientSecret string   `yaml:"clientSecret"`
	Scopes       []string `yaml:"scopes"`

	// RefreshBefore renews cached tokens this long before they expire.
	// Default: 30s
	RefreshBefore Duration `yaml:"refreshBefore"`
}

// RateLimitConfig enables a client-wide token bucket when Rate is positive.
type RateLimitConfig struct {
	Rate  float64  `yaml:"rate"`
	Burst int      `yaml:"burst"`
	Wait  Duration `yaml:"wait"`
}

// BreakerConfig enables per-route circuit breakers when MaxFailures is
// positive.
type BreakerConfig struct {
	MaxFailures  int      `yaml:"maxFailures"`
	ResetTimeout Duration `yaml:"resetTimeout"`
}

// QueryConfig holds the query cache defaults.
type QueryConfig struct {
	StaleTime Duration `yaml:"staleTime"`
	GCTime    Duration `yaml:"gcTime"`

	// Retry is the number of retries after the first attempt. Unset uses
	// the query default; 0 disables retries.
	Retry *int `yaml:"retry"`

	RetryDelay    Duration `yaml:"retryDelay"`
	MaxRetryDelay Duration `yaml:"maxRetryDelay"`
}

// Persistence backends.
const (
	BackendNone    = "none"
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

// PersistConfig selects where query results are written through.
type PersistConfig struct {
	// Backend is one of none, memory, leveldb.
	// Default: none
	Backend string `yaml:"backend"`

	// Path is the leveldb directory.
	Path string `yaml:"path"`

	// TTL default: 5m
	TTL Duration `yaml:"ttl"`

	// MaxTTL default: 1h
	MaxTTL Duration `yaml:"maxTtl"`
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	ServiceName string `yaml:"serviceName"`
	Version     string `yaml:"version"`
	Tracing     struct {
		Enabled   bool    `yaml:"enabled"`
		Exporter  string  `yaml:"exporter"`
		SamplePct float64 `yaml:"samplePct"`
	} `yaml:"tracing"`
	Metrics struct {
		Enabled  bool   `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
	} `yaml:"metrics"`
	Logging struct {
		Enabled bool   `yaml:"enabled"`
		Level   string `yaml:"level"`
	} `yaml:"logging"`
}

// HealthConfig configures the health aggregator.
type HealthConfig struct {
	// ProbePath is sent as GET to the upstream API. Empty skips the
	// upstream check.
	ProbePath string `yaml:"probePath"`

	// Timeout default: 5s
	Timeout Duration `yaml:"timeout"`
}

// Load reads and parses the file at path.
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data, resolves variables and secrets, applies defaults and
// validates the result. Unknown fields are an error.
func Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.resolve(ctx); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Client.Auth.Type == "" {
		c.Client.Auth.Type = AuthNone
	}
	if c.Client.Auth.RefreshBefore == 0 {
		c.Client.Auth.RefreshBefore = Duration(30 * time.Second)
	}
	if c.Persist.Backend == "" {
		c.Persist.Backend = BackendNone
	}
	if c.Persist.TTL == 0 {
		c.Persist.TTL = Duration(5 * time.Minute)
	}
	if c.Persist.MaxTTL == 0 {
		c.Persist.MaxTTL = Duration(time.Hour)
	}
	if c.Health.Timeout == 0 {
		c.Health.Timeout = Duration(5 * time.Second)
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = "rpcquery"
	}
	if c.Observe.Tracing.Exporter == "" {
		c.Observe.Tracing.Exporter = "none"
	}
	if c.Observe.Metrics.Exporter == "" {
		c.Observe.Metrics.Exporter = "none"
	}
	if c.Observe.Logging.Level == "" {
		c.Observe.Logging.Level = "info"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Client.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: client.baseUrl %q is not an absolute URL", ErrInvalidValue, c.Client.BaseURL)
	}
	if c.Client.Timeout < 0 || c.Client.MaxConcurrent < 0 || c.Client.RateLimit.Rate < 0 {
		return fmt.Errorf("%w: client limits must not be negative", ErrInvalidValue)
	}
	if err := c.Client.Auth.validate(); err != nil {
		return err
	}

	if c.Query.Retry != nil && *c.Query.Retry < 0 {
		return fmt.Errorf("%w: query.retry must not be negative", ErrInvalidValue)
	}
	if c.Query.GCTime < 0 {
		return fmt.Errorf("%w: query.gcTime must not be negative", ErrInvalidValue)
	}

	if !slices.Contains(ValidBackends, c.Persist.Backend) {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Persist.Backend)
	}
	if c.Persist.Backend == BackendLevelDB && c.Persist.Path == "" {
		return ErrMissingPath
	}
	if c.Persist.MaxTTL < c.Persist.TTL {
		return fmt.Errorf("%w: persist.maxTtl is below persist.ttl", ErrInvalidValue)
	}

	obs := c.ObserveConfig()
	return obs.Validate()
}

func (a AuthConfig) validate() error {
	if !slices.Contains(ValidAuthTypes, a.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAuth, a.Type)
	}
	var missing string
	switch a.Type {
	case AuthAPIKey:
		if a.APIKey == "" {
			missing = "apiKey"
		}
	case AuthBearer:
		if a.Token == "" {
			missing = "token"
		}
	case AuthJWT:
		if a.SigningKey == "" {
			missing = "signingKey"
		}
	case AuthClientCredentials:
		if a.TokenURL == "" || a.ClientID == "" {
			missing = "tokenUrl and clientId"
		}
	}
	if missing != "" {
		return fmt.Errorf("%w: %s auth needs %s", ErrInvalidAuth, a.Type, missing)
	}
	return nil
}

// ObserveConfig returns the telemetry configuration.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// ValidAuthTypes lists the accepted client.auth.type values.
var ValidAuthTypes = []string{AuthNone, AuthAPIKey, AuthBearer, AuthJWT, AuthClientCredentials}

// ValidBackends lists the accepted persist.backend values.
var ValidBackends = []string{BackendNone, BackendMemory, BackendLevelDB}
