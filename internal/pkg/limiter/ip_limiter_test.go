package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestAllowEnforcesBurst(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}

	if l.Allow("10.0.0.1") {
		t.Error("request over burst was allowed")
	}

	// A different client gets its own bucket.
	if !l.Allow("10.0.0.2") {
		t.Error("fresh client was rejected")
	}
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 1)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.RemoteAddr = "192.168.1.5:51000"
	h.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first request: got status %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got status %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"192.168.1.5:51000", "192.168.1.5"},
		{"192.168.1.5", "192.168.1.5"},
		{"", "unknown_ip"},
	}

	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = c.remoteAddr
		if got := ClientIP(r); got != c.want {
			t.Errorf("ClientIP(%q) = %q, want %q", c.remoteAddr, got, c.want)
		}
	}
}
