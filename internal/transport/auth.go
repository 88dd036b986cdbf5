package transport

import "net/http"

// Authenticator attaches API credentials to outgoing requests.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth sends requests without credentials. Used in tests and for
// endpoints that do not require a key.
type NoAuth struct{}

func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth sets a standard Bearer token Authorization header, which
// is what the AxisCare API expects.
type BearerAuth struct{}

func (a *BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// HeaderAuth places the raw key in a named header. OpenPhone takes the
// key directly in the Authorization header without a scheme prefix.
type HeaderAuth struct {
	Header string
}

func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}
