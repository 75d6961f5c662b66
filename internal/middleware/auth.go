package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/store"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated caller. The credential itself is the
// principal; there is no separate user identity behind it.
type Principal struct {
	Key *model.APIKey
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// APIKeyAuth returns middleware that authenticates requests via an
// "Authorization: ApiKey <secret>" header. Every failure mode responds with
// the same generic 401 body so callers cannot distinguish an unknown prefix
// from a hash mismatch or an expired key; the specific reason is only logged.
func APIKeyAuth(s store.APIKeyStore, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := clientIPKey(r, "api_key")
			if limiter != nil && !limiter.allow(attemptKey) {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			fail := func(reason string) {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				authFailuresTotal.Inc()
				log.Warn().Str("reason", reason).Str("remote", r.RemoteAddr).Msg("authentication rejected")
				respondError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key")
			}

			token := extractAPIKeyToken(r)
			if token == "" {
				fail("no credential supplied")
				return
			}
			if len(token) < model.PrefixLength {
				fail("invalid credential format")
				return
			}

			apiKey, err := s.GetActiveAPIKeyByPrefix(r.Context(), token[:model.PrefixLength])
			if err != nil {
				fail("unknown prefix")
				return
			}

			if apiKey.Expired(time.Now()) {
				fail("credential expired")
				return
			}

			supplied := SHA256Hex(token)
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey.KeyHash)) != 1 {
				fail("hash mismatch")
				return
			}

			if limiter != nil {
				limiter.registerSuccess(attemptKey)
			}

			// Best-effort; auth succeeds even if the touch fails.
			if err := s.TouchAPIKey(r.Context(), apiKey.ID, time.Now().UTC()); err != nil {
				log.Warn().Err(err).Str("key_id", apiKey.ID.String()).Msg("failed to update last_used")
			}

			ctx := context.WithValue(r.Context(), principalContextKey, &Principal{Key: apiKey})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal attaches a principal to a context. Exposed for tests.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// extractAPIKeyToken pulls the token out of an ApiKey authorization header.
// Any other scheme is treated as "no credential supplied".
func extractAPIKeyToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "ApiKey") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SHA256Hex returns the hex-encoded SHA-256 hash of the input.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}
