package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/user-records-service/internal/middleware"
)

// --- Key Info ---

type KeyInfoHandler struct {
	rateLimiter *middleware.RateLimiter
}

func NewKeyInfoHandler(rl *middleware.RateLimiter) *KeyInfoHandler {
	return &KeyInfoHandler{rateLimiter: rl}
}

type keyInfoResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	KeyPrefix   string              `json:"key_prefix"`
	Permissions map[string][]string `json:"permissions"`
	RateLimit   rateLimitInfo       `json:"rate_limit"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	LastUsed    *time.Time          `json:"last_used"`
	ExpiresAt   *time.Time          `json:"expires_at"`
}

type rateLimitInfo struct {
	MaxRequests   int `json:"max_requests"`
	WindowSeconds int `json:"window_seconds"`
	Remaining     int `json:"remaining"`
}

func (h *KeyInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		RespondError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key")
		return
	}
	key := principal.Key

	// Read-only; does not consume a request.
	remaining := h.rateLimiter.Remaining(key)

	RespondJSON(w, http.StatusOK, keyInfoResponse{
		ID:          key.ID,
		Name:        key.Name,
		KeyPrefix:   key.KeyPrefix,
		Permissions: key.Permissions,
		RateLimit: rateLimitInfo{
			MaxRequests:   key.RateLimit,
			WindowSeconds: int(time.Hour / time.Second),
			Remaining:     remaining,
		},
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
		LastUsed:  key.LastUsed,
		ExpiresAt: key.ExpiresAt,
	})
}

// --- Validate Key ---

// ValidateKeyHandler confirms the presented credential authenticates.
// Reaching it at all means authentication succeeded, so the body only
// echoes the key identity.
type ValidateKeyHandler struct{}

func NewValidateKeyHandler() *ValidateKeyHandler {
	return &ValidateKeyHandler{}
}

type validateKeyResponse struct {
	Valid       bool                `json:"valid"`
	KeyName     string              `json:"key_name"`
	Permissions map[string][]string `json:"permissions"`
	RateLimit   int                 `json:"rate_limit"`
	ExpiresAt   *time.Time          `json:"expires_at"`
}

func (h *ValidateKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		RespondError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid or missing API key")
		return
	}
	key := principal.Key

	RespondJSON(w, http.StatusOK, validateKeyResponse{
		Valid:       true,
		KeyName:     key.Name,
		Permissions: key.Permissions,
		RateLimit:   key.RateLimit,
		ExpiresAt:   key.ExpiresAt,
	})
}
