package querykey

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key is an immutable query key: [METHOD, path] or [METHOD, path, payload].
type Key []any

// CreateQueryKey builds the key for a request. The method is upper-cased;
// the payload segment is present only when NormalizeObject keeps something.
func CreateQueryKey(method, path string, payload any) Key {
	method = strings.ToUpper(method)
	normalized, ok := NormalizeObject(payload)
	if !ok {
		return Key{method, path}
	}
	return Key{method, path, normalized}
}

// Method returns the upper-cased HTTP method segment.
func (k Key) Method() string {
	if len(k) == 0 {
		return ""
	}
	s, _ := k[0].(string)
	return s
}

// Path returns the route path segment.
func (k Key) Path() string {
	if len(k) < 2 {
		return ""
	}
	s, _ := k[1].(string)
	return s
}

// Payload returns the normalized payload segment, if any.
func (k Key) Payload() (map[string]any, bool) {
	if len(k) < 3 {
		return nil, false
	}
	p, ok := k[2].(map[string]any)
	return p, ok
}

// String returns the canonical encoding of the key. Equal keys always
// produce the same string regardless of map iteration order, and distinct
// keys never share one. Keys whose leaves are all JSON-encodable encode as
// JSON.
func (k Key) String() string {
	return string(canonicalize([]any(k)))
}

// Hash returns the first 16 hex characters of SHA-256 over String().
func (k Key) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:8])
}

// Equal reports structural equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	return k.String() == other.String()
}

// HasPrefix reports whether prefix partially matches k.
//
// Every segment of prefix must match the segment of k at the same position.
// Object segments match when each field of the prefix object matches the
// corresponding field of k's object, so {"query": {"page": 1}} matches a key
// whose query also carries other fields.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if !partialMatch(k[i], prefix[i]) {
			return false
		}
	}
	return true
}

func partialMatch(v, pattern any) bool {
	pobj, ok := pattern.(map[string]any)
	if !ok {
		return sameValue(v, pattern)
	}
	vobj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for field, want := range pobj {
		got, exists := vobj[field]
		if !exists || !partialMatch(got, want) {
			return false
		}
	}
	return true
}

// sameValue compares leaves through their canonical form so that numeric
// types decoded differently (int vs float64) still compare equal.
func sameValue(a, b any) bool {
	return bytes.Equal(canonicalize(a), canonicalize(b))
}
