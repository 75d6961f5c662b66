package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/user-records-service/internal/cache"
	"github.com/user-records-service/internal/model"
)

// RateLimiter enforces per-credential fixed-window rate limits. The window
// is the current wall-clock hour truncated to the hour boundary, so bursts
// straddling a boundary may pass. The read-then-increment is not atomic
// across concurrent requests; a small overshoot can occur.
type RateLimiter struct {
	counters cache.Counter

	// now is overridable in tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter on top of a counter store.
func NewRateLimiter(counters cache.Counter) *RateLimiter {
	return &RateLimiter{counters: counters, now: time.Now}
}

// Allow checks whether the credential is within its hourly quota.
// Returns (allowed, remaining, resetAt). A denied request does not
// increment the counter.
func (rl *RateLimiter) Allow(apiKey *model.APIKey) (bool, int, time.Time) {
	now := rl.now()
	windowStart := now.Truncate(time.Hour)
	resetAt := windowStart.Add(time.Hour)
	key := counterKey(apiKey, windowStart)

	count := rl.counters.Get(key)
	if count >= apiKey.RateLimit {
		return false, 0, resetAt
	}

	// Counter entries expire with the window so stale windows self-clean.
	count = rl.counters.Incr(key, resetAt.Sub(now))

	remaining := apiKey.RateLimit - count
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, resetAt
}

// Remaining returns the remaining quota without consuming a request.
func (rl *RateLimiter) Remaining(apiKey *model.APIKey) int {
	windowStart := rl.now().Truncate(time.Hour)
	remaining := apiKey.RateLimit - rl.counters.Get(counterKey(apiKey, windowStart))
	if remaining < 0 {
		return 0
	}
	return remaining
}

func counterKey(apiKey *model.APIKey, windowStart time.Time) string {
	return fmt.Sprintf("rate:%s:%d", apiKey.ID, windowStart.Unix())
}

// RateLimitMiddleware returns middleware that enforces per-key rate limits.
// Unauthenticated requests pass through untouched.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := principal.Key
			if apiKey.RateLimit <= 0 {
				respondError(w, http.StatusInternalServerError, "invalid_key_configuration", "API key rate limit configuration is invalid")
				return
			}

			allowed, remaining, resetAt := rl.Allow(apiKey)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(apiKey.RateLimit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				rateLimitedTotal.Inc()
				respondError(w, http.StatusTooManyRequests, "rate_limited",
					"Rate limit exceeded. Please wait before making more requests.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
