package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/directorstracker/tracker-server/internal/ratelimit"
)

// RateLimitMiddleware creates a middleware that rate limits requests by IP.
// Returns 429 Too Many Requests when limit is exceeded. Health checks are exempt.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				writeEnvelope(w, http.StatusTooManyRequests, newErrorEnvelope(
					newAPIError(http.StatusTooManyRequests, "Too many requests. Please try again later.")), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's remote host. middleware.RealIP has already
// applied X-Forwarded-For and X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
