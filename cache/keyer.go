package cache

import (
	"fmt"

	"github.com/jonwraymond/rpcquery/querykey"
)

// KeyPrefix starts every storage key produced by DefaultKeyer.
const KeyPrefix = "rq:"

// Keyer maps query keys to storage keys.
//
// Contract:
// - Determinism: structurally equal query keys must map to the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key returns the storage key for k.
	Key(k querykey.Key) (string, error)

	// Prefix returns a storage key prefix covering every key that k is a
	// prefix of. It may cover more; callers re-check with HasPrefix.
	Prefix(k querykey.Key) string
}

// DefaultKeyer derives storage keys of the form rq:<METHOD>:<path>:<hash>,
// where hash is querykey.Key.Hash of the whole key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic storage key.
func (d *DefaultKeyer) Key(k querykey.Key) (string, error) {
	if len(k) < 2 {
		return "", fmt.Errorf("%w: query key needs method and path", ErrInvalidKey)
	}
	key := fmt.Sprintf("%s%s:%s:%s", KeyPrefix, k.Method(), k.Path(), k.Hash())
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Prefix returns the storage prefix for all keys under k.
func (d *DefaultKeyer) Prefix(k querykey.Key) string {
	switch {
	case len(k) == 0:
		return KeyPrefix
	case len(k) == 1:
		return KeyPrefix + k.Method() + ":"
	default:
		return KeyPrefix + k.Method() + ":" + k.Path() + ":"
	}
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
