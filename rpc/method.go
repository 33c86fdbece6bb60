package rpc

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Methods lists the supported HTTP methods.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// NormalizeMethod returns the upper-case form of method. A leading "$" is
// stripped, so "$get", "get" and "GET" all normalize to "GET".
func NormalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(method), "$"))
	if !slices.Contains(Methods, m) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	return m, nil
}
