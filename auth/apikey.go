package auth

import (
	"context"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader is the header APIKey uses when none is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey sends a fixed API key in a header.
type APIKey struct {
	// Key is the raw API key.
	Key string

	// Header is the header name.
	// Default: "X-API-Key"
	Header string

	// Scheme, when set, is prepended to the key with a space, as in
	// "Authorization: ApiKey <key>".
	Scheme string
}

// Headers returns the API key header.
func (a APIKey) Headers(context.Context) (http.Header, error) {
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return nil, ErrMissingCredentials
	}
	name := a.Header
	if name == "" {
		name = DefaultAPIKeyHeader
	}
	if a.Scheme != "" {
		key = a.Scheme + " " + key
	}
	h := make(http.Header, 1)
	h.Set(name, key)
	return h, nil
}

// Ensure APIKey implements HeaderProvider
var _ HeaderProvider = APIKey{}
