package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset
	// environment variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered is returned for references to unknown providers.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrDuplicateProvider is returned when a provider name is registered twice.
	ErrDuplicateProvider = errors.New("secret: provider already registered")

	// ErrInvalidRef is returned for malformed references.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrEmptySecret is returned by strict resolvers when a provider
	// resolves a reference to "".
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrNotFound is returned by providers when a reference does not exist.
	ErrNotFound = errors.New("secret: not found")
)
