// Package cache persists query results outside the in-process query cache.
//
// It provides a byte-oriented Cache interface with in-memory and LevelDB
// implementations, a Keyer that maps query keys to storage keys, TTL
// policies, and a Persister that stores response results under those keys
// while skipping mutating HTTP methods.
package cache
