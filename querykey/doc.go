// Package querykey derives deterministic cache keys for RPC requests.
//
// A query key is the ordered sequence [METHOD, path] or
// [METHOD, path, payload], where payload is the request input normalized so
// that two inputs differing only in object field order produce equal keys.
// Arrays are positional and are never re-ordered.
//
// # Normalization
//
// NormalizeObject drops top-level fields that are nil or empty objects and
// deep-sorts the remaining values with SortObjectDeep. A payload left with
// no fields is absent, and CreateQueryKey then emits a two-segment key:
//
//	querykey.CreateQueryKey("get", "/users", nil)
//	// [GET /users]
//
//	querykey.CreateQueryKey("get", "/users/:id", map[string]any{
//	    "param": map[string]any{"id": "42"},
//	    "query": map[string]any{},
//	})
//	// [GET /users/:id map[param:map[id:42]]]
//
// Keys compare structurally. Key.String returns the canonical JSON form,
// which is what caches use as the storage key, and Key.HasPrefix implements
// partial matching for bulk invalidation.
package querykey
