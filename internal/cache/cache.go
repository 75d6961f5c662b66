// Package cache provides the small key-value surface the rate limiter sits
// on: read a counter, increment it with a TTL. Keeping the limiter behind
// this interface makes it testable without a real cache backend.
package cache

import "time"

// Counter is a TTL-expiring integer counter store.
type Counter interface {
	// Get returns the current value for key, or 0 when absent or expired.
	Get(key string) int
	// Incr increments key by one and returns the new value. The entry's
	// TTL is set on first increment; later increments keep the original
	// expiry so clock-aligned windows stay aligned.
	Incr(key string, ttl time.Duration) int
}
