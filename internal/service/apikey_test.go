package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user-records-service/internal/middleware"
	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/store"
)

func readWritePerms() map[string][]string {
	return map[string][]string{"users": {model.ActionRead, model.ActionWrite}}
}

func TestAPIKeyCreate(t *testing.T) {
	svc := NewAPIKeyService(store.NewMemory())

	result, err := svc.Create(context.Background(), CreateAPIKeyInput{
		Name:        "analytics batch",
		Permissions: readWritePerms(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(result.RawKey) != 64 {
		t.Errorf("raw key length = %d, want 64", len(result.RawKey))
	}
	if result.APIKey.KeyPrefix != result.RawKey[:model.PrefixLength] {
		t.Errorf("prefix %q does not match raw key", result.APIKey.KeyPrefix)
	}
	if result.APIKey.KeyHash == result.RawKey {
		t.Error("plaintext secret must not be stored")
	}
	if result.APIKey.KeyHash != middleware.SHA256Hex(result.RawKey) {
		t.Error("stored hash does not verify against the raw key")
	}
	if result.APIKey.RateLimit != defaultRateLimit {
		t.Errorf("rate limit = %d, want default %d", result.APIKey.RateLimit, defaultRateLimit)
	}
	if !result.APIKey.IsActive {
		t.Error("new keys should be active")
	}
}

// The secret handed out at creation must authenticate as-is, and any
// single-character mutation of it must not.
func TestAPIKeySecretRoundTrip(t *testing.T) {
	s := store.NewMemory()
	svc := NewAPIKeyService(s)

	result, err := svc.Create(context.Background(), CreateAPIKeyInput{
		Name:        "round trip",
		Permissions: readWritePerms(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	secret := result.RawKey

	authenticate := func(token string) int {
		h := middleware.APIKeyAuth(s, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/users/", nil)
		req.Header.Set("Authorization", "ApiKey "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := authenticate(secret); code != http.StatusOK {
		t.Fatalf("fresh secret rejected with %d", code)
	}

	for i := 0; i < len(secret); i++ {
		mutated := []byte(secret)
		if mutated[i] == 'f' {
			mutated[i] = '0'
		} else {
			mutated[i] = 'f'
		}
		if code := authenticate(string(mutated)); code != http.StatusUnauthorized {
			t.Fatalf("mutation at position %d accepted with %d", i, code)
		}
	}
}

func TestAPIKeyCreateSecretsUnique(t *testing.T) {
	svc := NewAPIKeyService(store.NewMemory())

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		result, err := svc.Create(context.Background(), CreateAPIKeyInput{
			Name:        "key",
			Permissions: readWritePerms(),
		})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if _, dup := seen[result.RawKey]; dup {
			t.Fatal("generated secrets must be unique")
		}
		seen[result.RawKey] = struct{}{}
	}
}

func TestAPIKeyCreateValidation(t *testing.T) {
	svc := NewAPIKeyService(store.NewMemory())
	past := time.Now().Add(-time.Hour)
	tooHigh := maxRateLimit + 1
	zero := 0

	tests := []struct {
		name  string
		input CreateAPIKeyInput
	}{
		{name: "empty name", input: CreateAPIKeyInput{Name: "  ", Permissions: readWritePerms()}},
		{name: "no permissions", input: CreateAPIKeyInput{Name: "k", Permissions: nil}},
		{name: "empty action list", input: CreateAPIKeyInput{Name: "k", Permissions: map[string][]string{"users": {}}}},
		{name: "unknown action", input: CreateAPIKeyInput{Name: "k", Permissions: map[string][]string{"users": {"fly"}}}},
		{name: "duplicate action", input: CreateAPIKeyInput{Name: "k", Permissions: map[string][]string{"users": {"read", "read"}}}},
		{name: "rate limit zero", input: CreateAPIKeyInput{Name: "k", Permissions: readWritePerms(), RateLimit: &zero}},
		{name: "rate limit too high", input: CreateAPIKeyInput{Name: "k", Permissions: readWritePerms(), RateLimit: &tooHigh}},
		{name: "expiry in the past", input: CreateAPIKeyInput{Name: "k", Permissions: readWritePerms(), ExpiresAt: &past}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			var svcErr *Error
			if !errors.As(err, &svcErr) || svcErr.Kind != ErrBadRequest {
				t.Errorf("expected bad request error, got %v", err)
			}
		})
	}
}

func TestAPIKeyRevoke(t *testing.T) {
	s := store.NewMemory()
	svc := NewAPIKeyService(s)

	result, err := svc.Create(context.Background(), CreateAPIKeyInput{
		Name:        "to revoke",
		Permissions: readWritePerms(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := result.APIKey.ID

	if err := svc.Revoke(context.Background(), id); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	key, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get after revoke: %v", err)
	}
	if key.IsActive {
		t.Error("revoked key should be inactive")
	}

	// The revoked key no longer authenticates by prefix.
	if _, err := s.GetActiveAPIKeyByPrefix(context.Background(), key.KeyPrefix); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for revoked prefix, got %v", err)
	}

	// Revoking twice is an error.
	err = svc.Revoke(context.Background(), id)
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Code != "invalid_status" {
		t.Errorf("expected invalid_status on double revoke, got %v", err)
	}
}
