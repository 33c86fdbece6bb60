package auth

import "net/http"

// Transport is an http.RoundTripper that adds the headers of a provider to
// every request.
//
// Usage:
//
//	client := &http.Client{Transport: auth.NewTransport(nil, provider)}
type Transport struct {
	// Base is the underlying transport.
	// Default: http.DefaultTransport
	Base http.RoundTripper

	// Provider supplies the headers.
	Provider HeaderProvider
}

// NewTransport creates a Transport. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, provider HeaderProvider) *Transport {
	return &Transport{Base: base, Provider: provider}
}

// RoundTrip clones req, sets the provider's headers and sends it. Headers
// already on the request are replaced. A provider error aborts the request
// and closes its body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Provider == nil {
		return base.RoundTrip(req)
	}

	h, err := t.Provider.Headers(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	out := req.Clone(req.Context())
	for k, v := range h {
		out.Header[k] = v
	}
	return base.RoundTrip(out)
}
