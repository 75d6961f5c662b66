package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/user-records-service/internal/service"
	"github.com/user-records-service/internal/store"
)

func newAdminRouter() chi.Router {
	svc := service.NewAPIKeyService(store.NewMemory())

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/admin/api-keys/", NewListAPIKeysHandler(svc))
	r.Method(http.MethodPost, "/admin/api-keys/", NewCreateAPIKeyHandler(svc))
	r.Method(http.MethodGet, "/admin/api-keys/{id}/", NewGetAPIKeyHandler(svc))
	r.Method(http.MethodPost, "/admin/api-keys/{id}/revoke/", NewRevokeAPIKeyHandler(svc))
	return r
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createKey(t *testing.T, router http.Handler, name string) (id, rawKey string) {
	t.Helper()
	body := fmt.Sprintf(`{"name": %q, "permissions": {"users": ["read", "write"]}}`, name)
	rec := do(router, http.MethodPost, "/admin/api-keys/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     string `json:"id"`
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.ID, resp.APIKey
}

func TestAdminCreateAPIKey(t *testing.T) {
	router := newAdminRouter()

	body := `{"name": "ci pipeline", "permissions": {"users": ["read"]}, "rate_limit": 50}`
	rec := do(router, http.MethodPost, "/admin/api-keys/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID        string              `json:"id"`
		Name      string              `json:"name"`
		APIKey    string              `json:"api_key"`
		KeyPrefix string              `json:"key_prefix"`
		RateLimit int                 `json:"rate_limit"`
		Perms     map[string][]string `json:"permissions"`
		IsActive  bool                `json:"is_active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Name != "ci pipeline" || resp.RateLimit != 50 || !resp.IsActive {
		t.Errorf("unexpected key: %+v", resp)
	}
	if len(resp.APIKey) != 64 {
		t.Errorf("api_key length = %d, want 64", len(resp.APIKey))
	}
	if !strings.HasPrefix(resp.APIKey, resp.KeyPrefix) {
		t.Errorf("prefix %q does not match secret", resp.KeyPrefix)
	}

	t.Run("secret never reappears", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/admin/api-keys/"+resp.ID+"/", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), resp.APIKey) {
			t.Error("plaintext secret leaked from the get endpoint")
		}
	})

	t.Run("invalid permissions rejected", func(t *testing.T) {
		rec := do(router, http.MethodPost, "/admin/api-keys/", `{"name": "bad", "permissions": {"users": ["fly"]}}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestAdminListAPIKeys(t *testing.T) {
	router := newAdminRouter()
	for i := 0; i < 3; i++ {
		createKey(t, router, fmt.Sprintf("key %d", i))
	}

	rec := do(router, http.MethodGet, "/admin/api-keys/?page=1&per_page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listAPIKeysResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.APIKeys) != 2 || resp.Page != 1 || resp.PerPage != 2 {
		t.Errorf("total=%d len=%d page=%d per_page=%d", resp.Total, len(resp.APIKeys), resp.Page, resp.PerPage)
	}
}

func TestAdminRevokeAPIKey(t *testing.T) {
	router := newAdminRouter()
	id, _ := createKey(t, router, "doomed")

	rec := do(router, http.MethodPost, "/admin/api-keys/"+id+"/revoke/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(router, http.MethodGet, "/admin/api-keys/"+id+"/", "")
	var key struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &key); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if key.IsActive {
		t.Error("revoked key should be inactive")
	}

	t.Run("double revoke", func(t *testing.T) {
		rec := do(router, http.MethodPost, "/admin/api-keys/"+id+"/revoke/", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(router, http.MethodPost, "/admin/api-keys/7b2de6a1-9c1d-4d9e-a111-000000000000/revoke/", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := do(router, http.MethodGet, "/admin/api-keys/nope/", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
