package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeVerifier struct {
	claims map[string]*IDClaims
}

func (f *fakeVerifier) VerifyClaims(_ context.Context, rawToken string) (*IDClaims, error) {
	if claims, ok := f.claims[rawToken]; ok {
		return claims, nil
	}
	return nil, errors.New("token not recognized")
}

func TestGoogleAuthMiddleware(t *testing.T) {
	verifier := &fakeVerifier{claims: map[string]*IDClaims{
		"domain-token":     {Email: "ops@example.com", EmailVerified: true, HD: "example.com"},
		"allowlist-token":  {Email: "Contractor@Gmail.com", EmailVerified: true},
		"unverified-token": {Email: "ops@example.com", EmailVerified: false, HD: "example.com"},
		"outsider-token":   {Email: "stranger@elsewhere.net", EmailVerified: true, HD: "elsewhere.net"},
	}}
	auth := NewGoogleAuthWithVerifier(verifier, "example.com", []string{"contractor@gmail.com"})

	var adminEmail string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminEmail = GetAdminEmail(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name      string
		header    string
		want      int
		wantEmail string
	}{
		{name: "domain member", header: "Bearer domain-token", want: http.StatusOK, wantEmail: "ops@example.com"},
		{name: "allowlisted email outside domain", header: "Bearer allowlist-token", want: http.StatusOK, wantEmail: "Contractor@Gmail.com"},
		{name: "unverified email", header: "Bearer unverified-token", want: http.StatusForbidden},
		{name: "outside domain and allowlist", header: "Bearer outsider-token", want: http.StatusForbidden},
		{name: "invalid token", header: "Bearer garbage", want: http.StatusUnauthorized},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "ApiKey domain-token", want: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adminEmail = ""
			req := httptest.NewRequest(http.MethodGet, "/admin/api-keys/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if tc.wantEmail != "" && adminEmail != tc.wantEmail {
				t.Errorf("admin email = %q, want %q", adminEmail, tc.wantEmail)
			}
		})
	}
}
