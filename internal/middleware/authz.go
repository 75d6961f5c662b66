package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/model"
)

// DefaultResource is the capability resource assumed when a route does not
// declare one.
const DefaultResource = "users"

// ActionForMethod maps an HTTP verb to a permission action.
// Unknown verbs default to read.
func ActionForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return model.ActionRead
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return model.ActionWrite
	case http.MethodDelete:
		return model.ActionDelete
	default:
		return model.ActionRead
	}
}

// RequirePermission returns middleware enforcing that the authenticated
// credential grants the verb-derived action on resource. The decision is
// stateless and evaluated per request. Runs before the rate limiter so a
// denied request never consumes quota.
func RequirePermission(resource string) func(http.Handler) http.Handler {
	if resource == "" {
		resource = DefaultResource
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r.Context())
			if principal == nil {
				respondError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key")
				return
			}

			action := ActionForMethod(r.Method)
			if !principal.Key.HasPermission(resource, action) {
				log.Warn().
					Str("key_id", principal.Key.ID.String()).
					Str("resource", resource).
					Str("action", action).
					Msg("permission denied")
				respondError(w, http.StatusForbidden, "permission_denied",
					"API key does not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
