package resilience

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/rpcquery/response"
)

// IsTransient reports whether err is worth another attempt.
//
// Structured server errors are transient for 5xx, 408 and 429 only.
// Cancellation and errors raised by this package's own guards are never
// transient. Every other error is treated as a transport failure and is
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := response.AsResponseError(err); ok {
		return transientStatus(re.Status)
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, ErrBulkheadFull),
		errors.Is(err, ErrRateLimitExceeded):
		return false
	}
	return true
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}
