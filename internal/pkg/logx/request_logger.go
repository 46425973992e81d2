/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP request-logging middleware. It anonymizes client
IPs, strips session tokens out of logged URLs, and keeps health probes and
long-lived WebSocket requests from flooding the log.
*/
package logx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// anonymizeIP zeros the last IPv4 octet or compresses the latter half of an
// IPv6 address, keeping approximate geolocation without storing the client.
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return v4[:3].String() + ".0"
	}

	if v6 := ip.To16(); v6 != nil {
		return v6[:8].String() + "::"
	}

	return ipStr
}

// sanitizeURI removes the session token query parameter before logging.
// WebSocket upgrades carry the token in "?t=" because browsers cannot set
// headers on upgrade requests.
func sanitizeURI(r *http.Request) string {
	q := r.URL.Query()
	if q.Has("t") {
		q.Set("t", "REDACTED")
		u := *r.URL
		u.RawQuery = q.Encode()
		return u.RequestURI()
	}
	return r.RequestURI
}

// RequestLogger logs the request lifecycle and injects a request-scoped
// logger into the context.
func RequestLogger() func(next http.Handler) http.Handler {
	baseLogger := Logger()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			requestID := middleware.GetReqID(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := baseLogger.With().
				Str("component", "http").
				Str("request_id", requestID).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", sanitizeURI(r)).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			t1 := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()

			logEvent := logger.Info()
			switch {
			case status >= 500:
				logEvent = logger.Error()
			case status >= 400:
				logEvent = logger.Warn()
			case status == 0:
				// Hijacked connection (WebSocket); latency here is session
				// lifetime, not handler time.
				logEvent = logger.Debug()
			case r.URL.Path == "/health":
				logEvent = logger.Debug()
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(t1)).
				Msg("Request completed")
		}

		return http.HandlerFunc(fn)
	}
}
