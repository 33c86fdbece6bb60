package config

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jonwraymond/rpcquery/secret"
)

type stringField struct {
	name string
	ptr  *string
}

func (c *Config) stringFields() []stringField {
	a := &c.Client.Auth
	return []stringField{
		{"client.baseUrl", &c.Client.BaseURL},
		{"client.requestIdHeader", &c.Client.RequestIDHeader},
		{"client.auth.type", &a.Type},
		{"client.auth.apiKey", &a.APIKey},
		{"client.auth.header", &a.Header},
		{"client.auth.scheme", &a.Scheme},
		{"client.auth.token", &a.Token},
		{"client.auth.signingKey", &a.SigningKey},
		{"client.auth.issuer", &a.Issuer},
		{"client.auth.subject", &a.Subject},
		{"client.auth.tokenUrl", &a.TokenURL},
		{"client.auth.clientId", &a.ClientID},
		{"client.auth.clientSecret", &a.ClientSecret},
		{"persist.backend", &c.Persist.Backend},
		{"persist.path", &c.Persist.Path},
		{"observe.serviceName", &c.Observe.ServiceName},
		{"observe.version", &c.Observe.Version},
		{"observe.tracing.exporter", &c.Observe.Tracing.Exporter},
		{"observe.metrics.exporter", &c.Observe.Metrics.Exporter},
		{"observe.logging.level", &c.Observe.Logging.Level},
		{"health.probePath", &c.Health.ProbePath},
	}
}

// resolve expands every string value in place.
func (c *Config) resolve(ctx context.Context) error {
	r, err := c.secretResolver()
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	for _, f := range c.stringFields() {
		v, err := r.ResolveValue(ctx, *f.ptr)
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.name, err)
		}
		*f.ptr = v
	}

	if c.Client.Headers, err = r.ResolveMap(ctx, c.Client.Headers); err != nil {
		return fmt.Errorf("config: client.headers: %w", err)
	}
	if c.Client.Auth.Scopes, err = r.ResolveSlice(ctx, c.Client.Auth.Scopes); err != nil {
		return fmt.Errorf("config: client.auth.scopes: %w", err)
	}
	if c.Client.Auth.Audience, err = r.ResolveSlice(ctx, c.Client.Auth.Audience); err != nil {
		return fmt.Errorf("config: client.auth.audience: %w", err)
	}
	return nil
}

// secretResolver builds the providers named in the secrets section. Their
// settings are expanded against the environment only.
func (c *Config) secretResolver() (*secret.Resolver, error) {
	r := secret.NewResolver(true, secret.EnvProvider{})
	for _, name := range slices.Sorted(maps.Keys(c.Secrets)) {
		settings := make(map[string]any, len(c.Secrets[name]))
		for k, v := range c.Secrets[name] {
			if s, ok := v.(string); ok {
				expanded, err := secret.ExpandEnvStrict(s)
				if err != nil {
					return nil, fmt.Errorf("config: secrets.%s.%s: %w", name, k, err)
				}
				v = expanded
			}
			settings[k] = v
		}
		p, err := secret.DefaultRegistry.Create(name, settings)
		if err != nil {
			return nil, fmt.Errorf("config: secrets.%s: %w", name, err)
		}
		r.Register(p)
	}
	return r, nil
}
