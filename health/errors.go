package health

import "errors"

var (
	// ErrCheckFailed marks an Unhealthy result without a more specific cause.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a check that did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for unknown checker names.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrProbeMismatch is returned when a cache probe reads back other bytes
	// than it wrote.
	ErrProbeMismatch = errors.New("health: probe value mismatch")
)
