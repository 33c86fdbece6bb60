package query

import "errors"

var (
	// ErrEmptyKey is returned when a query key has no segments.
	ErrEmptyKey = errors.New("query: key is empty")

	// ErrNoQueryFn is returned when a query has no function to fetch with.
	ErrNoQueryFn = errors.New("query: query function is required")

	// ErrNoMutationFn is returned when a mutation has no function.
	ErrNoMutationFn = errors.New("query: mutation function is required")

	// ErrNilClient is returned when a Binder has no rpc or query client.
	ErrNilClient = errors.New("query: client is nil")
)
