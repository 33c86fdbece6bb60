package rpc

import "errors"

var (
	// ErrUnknownRoute is returned for a path and method not in the registry.
	ErrUnknownRoute = errors.New("rpc: unknown route")

	// ErrDuplicateRoute is returned when a route is registered twice.
	ErrDuplicateRoute = errors.New("rpc: duplicate route")

	// ErrInvalidMethod is returned for an unsupported HTTP method.
	ErrInvalidMethod = errors.New("rpc: invalid method")

	// ErrInvalidPath is returned for a route path that does not start with "/".
	ErrInvalidPath = errors.New("rpc: invalid path")

	// ErrMissingParam is returned when a required path parameter has no value.
	ErrMissingParam = errors.New("rpc: missing path parameter")

	// ErrInvalidBaseURL is returned when the client base URL cannot be parsed.
	ErrInvalidBaseURL = errors.New("rpc: invalid base URL")
)
