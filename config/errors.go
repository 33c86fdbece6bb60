package config

import "errors"

var (
	// ErrMissingBaseURL is returned when client.baseUrl is empty.
	ErrMissingBaseURL = errors.New("config: client.baseUrl is required")

	// ErrInvalidBackend is returned for an unknown persist.backend.
	ErrInvalidBackend = errors.New("config: invalid persist backend")

	// ErrMissingPath is returned when the leveldb backend has no path.
	ErrMissingPath = errors.New("config: persist.path is required for leveldb")

	// ErrInvalidAuth is returned for an unknown or incomplete client.auth.
	ErrInvalidAuth = errors.New("config: invalid client auth")

	// ErrInvalidValue is returned for out-of-range numbers and durations.
	ErrInvalidValue = errors.New("config: invalid value")
)
