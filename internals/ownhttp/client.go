package ownhttp

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// UserAgent is sent on every request. main() refines it with the build
// version before anything talks to the network.
var UserAgent = "portablemc (https://github.com/portablemc/portablemc)"

// New returns a new http.Client with the AddHeaderTransport (setting the User-Agent header)
func New() *http.Client {
	return &http.Client{Transport: NewAddHeaderTransport(nil)}
}

// NewThrottled returns a client that additionally rate limits its
// requests. Metadata endpoints are polled in loops at times, no reason
// to hammer them.
func NewThrottled(limit rate.Limit, burst int) *http.Client {
	return &http.Client{
		Transport: NewThrottleTransport(NewAddHeaderTransport(nil), rate.NewLimiter(limit, burst)),
	}
}

// AddHeaderTransport decorates every request with our User-Agent,
// Mojang and the meta servers should know who is calling.
type AddHeaderTransport struct {
	T http.RoundTripper
}

func (at *AddHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	return at.T.RoundTrip(req)
}

func NewAddHeaderTransport(T http.RoundTripper) *AddHeaderTransport {
	if T == nil {
		T = http.DefaultTransport
	}
	return &AddHeaderTransport{T}
}

// StatusError reports a response with an unexpected status code. Callers
// that care about a specific code, like probing 404s, match on it.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// ThrottleTransport limits the request rate of a client.
type ThrottleTransport struct {
	T       http.RoundTripper
	limiter *rate.Limiter
}

func (tt *ThrottleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	err := tt.limiter.Wait(req.Context())
	if err != nil {
		return nil, err
	}

	return tt.T.RoundTrip(req)
}

func NewThrottleTransport(T http.RoundTripper, limiter *rate.Limiter) *ThrottleTransport {
	if T == nil {
		T = http.DefaultTransport
	}
	return &ThrottleTransport{T, limiter}
}
