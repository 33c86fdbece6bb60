package auth

import (
	"context"
	"net/http"
)

// HeaderProvider returns headers to attach to an outgoing request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - The returned header is owned by the caller.
type HeaderProvider interface {
	Headers(ctx context.Context) (http.Header, error)
}

// HeaderProviderFunc adapts a function to HeaderProvider.
type HeaderProviderFunc func(ctx context.Context) (http.Header, error)

// Headers calls f.
func (f HeaderProviderFunc) Headers(ctx context.Context) (http.Header, error) {
	return f(ctx)
}

// StaticHeaders always returns the same headers.
type StaticHeaders map[string]string

// Headers returns a fresh copy of s.
func (s StaticHeaders) Headers(context.Context) (http.Header, error) {
	h := make(http.Header, len(s))
	for k, v := range s {
		h.Set(k, v)
	}
	return h, nil
}

type chain []HeaderProvider

// Chain merges the headers of several providers. Later providers replace
// headers set by earlier ones. The first error stops the chain.
func Chain(providers ...HeaderProvider) HeaderProvider {
	out := make(chain, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c chain) Headers(ctx context.Context) (http.Header, error) {
	merged := make(http.Header)
	for _, p := range c {
		h, err := p.Headers(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range h {
			merged[k] = append([]string(nil), v...)
		}
	}
	return merged, nil
}
