package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Token is an access token.
type Token struct {
	// Value is the raw token.
	Value string

	// Type is the authorization scheme. Empty means "Bearer".
	Type string

	// ExpiresAt is when the token stops being valid. Zero means never.
	ExpiresAt time.Time
}

// Fresh reports whether t is usable for at least another margin.
func (t *Token) Fresh(now time.Time, margin time.Duration) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return t.ExpiresAt.IsZero() || now.Add(margin).Before(t.ExpiresAt)
}

// TokenSource produces access tokens.
type TokenSource interface {
	Token(ctx context.Context) (*Token, error)
}

// CachingTokenSource reuses a token until it is within RefreshBefore of
// expiring. Concurrent refreshes share one call to the underlying source.
// When a refresh fails but the cached token has not expired yet, the
// cached token is returned.
type CachingTokenSource struct {
	src           TokenSource
	refreshBefore time.Duration
	now           func() time.Time

	mu  sync.RWMutex
	tok *Token
	sf  singleflight.Group
}

// ReuseTokenSource wraps src with caching.
func ReuseTokenSource(src TokenSource, refreshBefore time.Duration) *CachingTokenSource {
	if refreshBefore < 0 {
		refreshBefore = 0
	}
	return &CachingTokenSource{src: src, refreshBefore: refreshBefore, now: time.Now}
}

// Token returns the cached token or fetches a new one.
func (c *CachingTokenSource) Token(ctx context.Context) (*Token, error) {
	c.mu.RLock()
	tok := c.tok
	c.mu.RUnlock()
	if tok.Fresh(c.now(), c.refreshBefore) {
		return tok, nil
	}

	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		next, err := c.src.Token(ctx)
		if err != nil {
			return nil, err
		}
		if next == nil || next.Value == "" {
			return nil, ErrTokenMalformed
		}
		c.mu.Lock()
		c.tok = next
		c.mu.Unlock()
		return next, nil
	})
	if err != nil {
		if tok.Fresh(c.now(), 0) {
			return tok, nil
		}
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate drops the cached token so the next call refreshes.
func (c *CachingTokenSource) Invalidate() {
	c.mu.Lock()
	c.tok = nil
	c.mu.Unlock()
}

// Bearer turns a TokenSource into an Authorization header.
type Bearer struct {
	src TokenSource
}

// NewBearer creates a Bearer provider.
func NewBearer(src TokenSource) *Bearer {
	return &Bearer{src: src}
}

// Headers returns "Authorization: <type> <token>".
func (b *Bearer) Headers(ctx context.Context) (http.Header, error) {
	if b == nil || b.src == nil {
		return nil, ErrMissingCredentials
	}
	tok, err := b.src.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: obtain token: %w", err)
	}
	scheme := tok.Type
	if scheme == "" {
		scheme = "Bearer"
	}
	h := make(http.Header, 1)
	h.Set("Authorization", scheme+" "+tok.Value)
	return h, nil
}
