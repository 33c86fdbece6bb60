package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/response"
)

// SkipRule determines whether to skip persistence for a query key.
// Returns true if persistence should be skipped.
type SkipRule func(key querykey.Key) bool

// UnsafeMethods are HTTP methods with side effects whose results are not
// persisted unless the policy allows it.
var UnsafeMethods = []string{"POST", "PUT", "PATCH", "DELETE"}

// DefaultSkipRule skips keys whose method is one of UnsafeMethods.
// Method matching is case-insensitive.
func DefaultSkipRule(key querykey.Key) bool {
	method := strings.ToUpper(key.Method())
	for _, unsafe := range UnsafeMethods {
		if method == unsafe {
			return true
		}
	}
	return false
}

// Entry is a persisted query result.
type Entry struct {
	Key     querykey.Key     `json:"key"`
	Result  *response.Result `json:"result"`
	SavedAt time.Time        `json:"savedAt"`
}

// Persister writes query results through to a Cache.
type Persister struct {
	cache    Cache
	keyer    Keyer
	policy   Policy
	skipRule SkipRule
}

// NewPersister creates a new persister.
// If keyer is nil, DefaultKeyer is used. If skipRule is nil, DefaultSkipRule
// is used.
func NewPersister(cache Cache, keyer Keyer, policy Policy, skipRule SkipRule) *Persister {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if skipRule == nil {
		skipRule = DefaultSkipRule
	}
	return &Persister{
		cache:    cache,
		keyer:    keyer,
		policy:   policy,
		skipRule: skipRule,
	}
}

// Save stores result under key. ttl overrides the policy default and is
// clamped to MaxTTL. Skipped keys and disabled policies are a no-op.
func (p *Persister) Save(ctx context.Context, key querykey.Key, result *response.Result, ttl time.Duration) error {
	if p == nil || p.cache == nil {
		return ErrNilCache
	}
	if result == nil {
		return nil
	}
	if !p.policy.AllowUnsafe && p.skipRule(key) {
		return nil
	}
	if !p.policy.ShouldCache() && ttl <= 0 {
		return nil
	}

	storageKey, err := p.keyer.Key(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(Entry{Key: key, Result: result, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	return p.cache.Set(ctx, storageKey, data, p.policy.EffectiveTTL(ttl))
}

// Load returns the entry stored under key.
func (p *Persister) Load(ctx context.Context, key querykey.Key) (Entry, bool) {
	if p == nil || p.cache == nil {
		return Entry{}, false
	}
	storageKey, err := p.keyer.Key(key)
	if err != nil {
		return Entry{}, false
	}
	return p.load(ctx, storageKey)
}

func (p *Persister) load(ctx context.Context, storageKey string) (Entry, bool) {
	data, ok := p.cache.Get(ctx, storageKey)
	if !ok {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Result == nil {
		// Unreadable entries are dropped rather than served
		_ = p.cache.Delete(ctx, storageKey)
		return Entry{}, false
	}
	return entry, true
}

// Remove deletes the entry stored under key.
func (p *Persister) Remove(ctx context.Context, key querykey.Key) error {
	if p == nil || p.cache == nil {
		return ErrNilCache
	}
	storageKey, err := p.keyer.Key(key)
	if err != nil {
		return err
	}
	return p.cache.Delete(ctx, storageKey)
}

// RemoveMatching deletes every entry whose key has prefix as a prefix and
// returns how many were removed.
func (p *Persister) RemoveMatching(ctx context.Context, prefix querykey.Key) (int, error) {
	if p == nil || p.cache == nil {
		return 0, ErrNilCache
	}

	keys, err := p.cache.Keys(ctx, p.keyer.Prefix(prefix))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, storageKey := range keys {
		entry, ok := p.load(ctx, storageKey)
		if !ok || !entry.Key.HasPrefix(prefix) {
			continue
		}
		if err := p.cache.Delete(ctx, storageKey); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
