package netutil

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name  string
		proxy string
		want  string
	}{
		{"direct", "", ""},
		{"proxied", "http://127.0.0.1:7890", "http://127.0.0.1:7890"},
		{"unparseable proxy is ignored", "http://[::1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHTTPClient(tt.proxy)
			if c.Timeout != 30*time.Second {
				t.Errorf("timeout = %v", c.Timeout)
			}
			tr, ok := c.Transport.(*http.Transport)
			if !ok {
				t.Fatalf("unexpected transport %T", c.Transport)
			}
			if tt.want == "" {
				if tr.Proxy != nil {
					t.Error("expected no proxy")
				}
				return
			}
			req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
			u, err := tr.Proxy(req)
			if err != nil || u == nil || u.String() != tt.want {
				t.Errorf("proxy = %v, %v; want %s", u, err, tt.want)
			}
		})
	}
}
