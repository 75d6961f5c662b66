// Package admin exposes the credential management API. Every route is
// gated behind Google-authenticated operator access, never API keys.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user-records-service/internal/handler"
	"github.com/user-records-service/internal/httputil"
	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/service"
)

type apiKeyItem struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	KeyPrefix   string              `json:"key_prefix"`
	Permissions map[string][]string `json:"permissions"`
	RateLimit   int                 `json:"rate_limit"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   string              `json:"created_at"`
	LastUsed    *string             `json:"last_used"`
	ExpiresAt   *string             `json:"expires_at"`
}

func toAPIKeyItem(key *model.APIKey) apiKeyItem {
	return apiKeyItem{
		ID:          key.ID,
		Name:        key.Name,
		KeyPrefix:   key.KeyPrefix,
		Permissions: key.Permissions,
		RateLimit:   key.RateLimit,
		IsActive:    key.IsActive,
		CreatedAt:   key.CreatedAt.Format(time.RFC3339),
		LastUsed:    formatTime(key.LastUsed),
		ExpiresAt:   formatTime(key.ExpiresAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// --- List API Keys ---

type ListAPIKeysHandler struct {
	svc *service.APIKeyService
}

func NewListAPIKeysHandler(svc *service.APIKeyService) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{svc: svc}
}

type listAPIKeysResponse struct {
	APIKeys []apiKeyItem `json:"api_keys"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}

func (h *ListAPIKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := httputil.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("per_page"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	keys, total, err := h.svc.List(r.Context(), page, perPage)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	items := make([]apiKeyItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, toAPIKeyItem(key))
	}

	handler.RespondJSON(w, http.StatusOK, listAPIKeysResponse{
		APIKeys: items,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// --- Get API Key ---

type GetAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewGetAPIKeyHandler(svc *service.APIKeyService) *GetAPIKeyHandler {
	return &GetAPIKeyHandler{svc: svc}
}

func (h *GetAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
		return
	}

	key, err := h.svc.Get(r.Context(), id)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, toAPIKeyItem(key))
}

// --- Create API Key ---

type CreateAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewCreateAPIKeyHandler(svc *service.APIKeyService) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{svc: svc}
}

type createAPIKeyRequest struct {
	Name        string              `json:"name"`
	Permissions map[string][]string `json:"permissions"`
	RateLimit   *int                `json:"rate_limit,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
}

type createAPIKeyResponse struct {
	apiKeyItem
	// APIKey is the plaintext secret. It is shown exactly once; only a
	// hash is stored.
	APIKey string `json:"api_key"`
}

func (h *CreateAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.svc.Create(r.Context(), service.CreateAPIKeyInput{
		Name:        req.Name,
		Permissions: req.Permissions,
		RateLimit:   req.RateLimit,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusCreated, createAPIKeyResponse{
		apiKeyItem: toAPIKeyItem(result.APIKey),
		APIKey:     result.RawKey,
	})
}

// --- Revoke API Key ---

type RevokeAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewRevokeAPIKeyHandler(svc *service.APIKeyService) *RevokeAPIKeyHandler {
	return &RevokeAPIKeyHandler{svc: svc}
}

func (h *RevokeAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		handler.RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		service.RespondError(w, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": "revoked",
	})
}
