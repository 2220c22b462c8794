package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/ShatskikhS/NotifyMe/internal/ratelimiter"
)

// RateLimit refuses requests beyond the limiter's budget with 429.
// The budget is shared by all clients.
func RateLimit(rl *ratelimiter.RequestLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow() {
				secs := int(math.Ceil(rl.RetryAfter().Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests, please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
