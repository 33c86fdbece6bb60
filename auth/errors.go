package auth

import "errors"

// Sentinel errors for credential providers.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrNoSigningKey       = errors.New("auth: signing key not configured")
	ErrTokenRequest       = errors.New("auth: token request failed")
	ErrTokenMalformed     = errors.New("auth: token malformed")
)
