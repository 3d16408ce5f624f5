package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware applies a global token-bucket limit to the admin
// surface. The admin API is an operational tool, not a data plane; a single
// shared bucket is enough to keep a misbehaving dashboard from starving the
// daemon.
func rateLimitMiddleware(limit float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
