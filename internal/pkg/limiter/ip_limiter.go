/*
Package limiter throttles anonymous surfaces by client IP.

Session issue and WebSocket connect are the only endpoints reachable without a
valid token, so they carry per-IP token buckets (rate.Limiter). A background
goroutine drops buckets that have refilled completely, keeping the map bounded.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/logx"
	"seotracker/internal/pkg/resp"

	"golang.org/x/time/rate"
)

// cleanupInterval controls how often idle buckets are swept.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter holds one token bucket per client IP.
type IPRateLimiter struct {
	mu sync.RWMutex

	// limits maps client IP to its bucket.
	limits map[string]*rate.Limiter

	// r and b are the refill rate and burst applied to every new bucket.
	r rate.Limit
	b int
}

// NewIPRateLimiter creates a limiter with rate r and burst b and starts the
// idle-bucket sweep.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.sweepIdle()

	return i
}

// ClientIP extracts the client address from a request, tolerating missing
// ports (proxied requests rewritten by middleware.RealIP have none).
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}

// Allow reports whether the client identified by ip may proceed, creating its
// bucket on first sight. Double-checked locking keeps the read path cheap.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.RLock()
	bucket, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		bucket, exists = i.limits[ip]
		if !exists {
			bucket = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = bucket
		}
		i.mu.Unlock()
	}

	return bucket.Allow()
}

// sweepIdle drops buckets whose tokens have fully refilled. A full bucket
// means the IP has been quiet for at least burst/rate, so recreating it later
// is equivalent to keeping it.
func (i *IPRateLimiter) sweepIdle() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		i.mu.Lock()
		removed := 0
		for ip, bucket := range i.limits {
			if bucket.TokensAt(time.Now()) >= float64(bucket.Burst()) {
				delete(i.limits, ip)
				removed++
			}
		}
		remaining := len(i.limits)
		i.mu.Unlock()

		if removed > 0 {
			logx.Info("Rate limiter sweep finished.", "removed", removed, "remaining", remaining)
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429 before the
// handler runs.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(ClientIP(r)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
