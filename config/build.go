package config

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/rpcquery/auth"
	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/health"
	"github.com/jonwraymond/rpcquery/query"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/rpc"
)

// HeaderProvider returns the credentials provider for client.auth, or nil
// for type none.
func (c *Config) HeaderProvider() (auth.HeaderProvider, error) {
	a := c.Client.Auth
	refresh := a.RefreshBefore.Std()
	switch a.Type {
	case AuthAPIKey:
		return auth.APIKey{Key: a.APIKey, Header: a.Header, Scheme: a.Scheme}, nil
	case AuthBearer:
		return auth.StaticHeaders{"Authorization": "Bearer " + a.Token}, nil
	case AuthJWT:
		b, err := auth.NewJWTBearer(auth.JWTConfig{
			Method:   jwt.SigningMethodHS256,
			Key:      []byte(a.SigningKey),
			Issuer:   a.Issuer,
			Subject:  a.Subject,
			Audience: a.Audience,
			TTL:      a.TTL.Std(),
		}, refresh)
		if err != nil {
			return nil, err
		}
		return b, nil
	case AuthClientCredentials:
		src, err := auth.NewClientCredentials(auth.ClientCredentialsConfig{
			TokenURL:     a.TokenURL,
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			Scopes:       a.Scopes,
		})
		if err != nil {
			return nil, err
		}
		return auth.NewBearer(auth.ReuseTokenSource(src, refresh)), nil
	case AuthNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAuth, a.Type)
	}
}

// RPCOptions returns the rpc client options described by the client
// section. extra options are appended and win over the configured ones.
func (c *Config) RPCOptions(extra ...rpc.Option) ([]rpc.Option, error) {
	cc := c.Client
	var opts []rpc.Option
	if len(cc.Headers) > 0 {
		opts = append(opts, rpc.WithHeaders(cc.Headers))
	}
	if cc.Timeout > 0 {
		opts = append(opts, rpc.WithTimeout(cc.Timeout.Std()))
	}
	if cc.RequestIDHeader != "" {
		opts = append(opts, rpc.WithRequestID(cc.RequestIDHeader))
	}

	provider, err := c.HeaderProvider()
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, rpc.WithHeaderProvider(provider))
	}

	if cc.RateLimit.Rate > 0 {
		opts = append(opts, rpc.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cc.RateLimit.Rate,
			Burst:       cc.RateLimit.Burst,
			WaitOnLimit: cc.RateLimit.Wait > 0,
			MaxWait:     cc.RateLimit.Wait.Std(),
		})))
	}
	if cc.MaxConcurrent > 0 {
		opts = append(opts, rpc.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cc.MaxConcurrent,
		})))
	}
	if cc.CircuitBreaker.MaxFailures > 0 {
		opts = append(opts, rpc.WithCircuitBreaker(resilience.NewBreakerSet(resilience.CircuitBreakerConfig{
			MaxFailures:  cc.CircuitBreaker.MaxFailures,
			ResetTimeout: cc.CircuitBreaker.ResetTimeout.Std(),
		})))
	}
	return append(opts, extra...), nil
}

// NewRPCClient creates the rpc client for the client section.
func (c *Config) NewRPCClient(extra ...rpc.Option) (*rpc.Client, error) {
	opts, err := c.RPCOptions(extra...)
	if err != nil {
		return nil, err
	}
	return rpc.New(c.Client.BaseURL, opts...)
}

// QueryDefaults returns the query cache defaults.
func (c *Config) QueryDefaults() query.Defaults {
	q := c.Query
	d := query.Defaults{
		StaleTime: q.StaleTime.Std(),
		GCTime:    q.GCTime.Std(),
	}
	if q.Retry != nil {
		d.Retry = resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  *q.Retry + 1,
			InitialDelay: q.RetryDelay.Std(),
			MaxDelay:     q.MaxRetryDelay.Std(),
		})
	}
	return d
}

// OpenStore opens the persistence backend. It returns nil for backend
// none. A leveldb store must be closed by the caller.
func (c *Config) OpenStore() (cache.Cache, error) {
	switch c.Persist.Backend {
	case BackendMemory:
		return cache.NewMemoryCache(), nil
	case BackendLevelDB:
		return cache.OpenLevelDB(c.Persist.Path)
	default:
		return nil, nil
	}
}

// Policy returns the persistence policy.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{
		DefaultTTL: c.Persist.TTL.Std(),
		MaxTTL:     c.Persist.MaxTTL.Std(),
	}
}

// NewPersister wraps store with the configured policy. A nil store gives a
// nil persister.
func (c *Config) NewPersister(store cache.Cache) *cache.Persister {
	if store == nil {
		return nil
	}
	return cache.NewPersister(store, nil, c.Policy(), nil)
}

// NewQueryClient creates a query cache with the configured defaults and
// persister. extra options are applied last.
func (c *Config) NewQueryClient(store cache.Cache, extra ...query.Option) *query.Client {
	opts := []query.Option{query.WithDefaults(c.QueryDefaults())}
	if p := c.NewPersister(store); p != nil {
		opts = append(opts, query.WithPersister(p))
	}
	return query.NewClient(append(opts, extra...)...)
}

// HealthAggregator registers the checks that apply: the upstream probe when
// health.probePath is set, the circuit breakers of rc when it has any and
// the store when it is not nil.
func (c *Config) HealthAggregator(rc *rpc.Client, store cache.Cache) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: c.Health.Timeout.Std()})
	if rc != nil && c.Health.ProbePath != "" {
		agg.Register("upstream", health.NewUpstreamChecker(rc, c.Health.ProbePath))
	}
	if rc != nil && rc.Breakers() != nil {
		agg.Register("breakers", health.NewBreakerChecker(rc.Breakers()))
	}
	if store != nil {
		agg.Register("cache", health.NewCacheChecker(store))
	}
	return agg
}
