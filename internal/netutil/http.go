package netutil

import (
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient returns a client with a 30s timeout that routes through
// proxyURL when it is set and parses.
func NewHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
