package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
)

type adminEmailKey struct{}

// GetAdminEmail extracts the authenticated admin email from the request context.
func GetAdminEmail(ctx context.Context) string {
	email, _ := ctx.Value(adminEmailKey{}).(string)
	return email
}

// IDClaims holds the verified claims from a Google ID token.
type IDClaims struct {
	Email         string
	EmailVerified bool
	HD            string
}

// TokenVerifier verifies an ID token and returns its claims.
type TokenVerifier interface {
	VerifyClaims(ctx context.Context, rawToken string) (*IDClaims, error)
}

type googleTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func (v *googleTokenVerifier) VerifyClaims(ctx context.Context, rawToken string) (*IDClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		HD            string `json:"hd"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	return &IDClaims{
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		HD:            claims.HD,
	}, nil
}

// GoogleAuth gates the admin key-management API behind Google ID tokens,
// restricted to an allowed domain and/or an explicit email allowlist.
type GoogleAuth struct {
	verifier      TokenVerifier
	allowedDomain string
	allowedEmails map[string]struct{}
}

// NewGoogleAuth builds a GoogleAuth against Google's issuer for clientID.
func NewGoogleAuth(ctx context.Context, clientID, allowedDomain string, allowedEmails []string) (*GoogleAuth, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("init oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return NewGoogleAuthWithVerifier(&googleTokenVerifier{verifier: verifier}, allowedDomain, allowedEmails), nil
}

// NewGoogleAuthWithVerifier builds a GoogleAuth with a custom verifier.
// Used by tests to avoid hitting Google's endpoints.
func NewGoogleAuthWithVerifier(verifier TokenVerifier, allowedDomain string, allowedEmails []string) *GoogleAuth {
	emails := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		emails[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &GoogleAuth{
		verifier:      verifier,
		allowedDomain: strings.ToLower(allowedDomain),
		allowedEmails: emails,
	}
}

// Middleware authenticates admin requests via a Bearer Google ID token.
func (g *GoogleAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "unauthorized", "Missing admin token")
			return
		}

		claims, err := g.verifier.VerifyClaims(r.Context(), strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("admin token rejected")
			respondError(w, http.StatusUnauthorized, "unauthorized", "Invalid admin token")
			return
		}

		if !claims.EmailVerified {
			respondError(w, http.StatusForbidden, "forbidden", "Email address is not verified")
			return
		}

		if !g.allowed(claims) {
			log.Warn().Str("email", claims.Email).Msg("admin email not allowed")
			respondError(w, http.StatusForbidden, "forbidden", "Account is not authorized for admin access")
			return
		}

		ctx := context.WithValue(r.Context(), adminEmailKey{}, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *GoogleAuth) allowed(claims *IDClaims) bool {
	email := strings.ToLower(claims.Email)
	if _, ok := g.allowedEmails[email]; ok {
		return true
	}
	if g.allowedDomain != "" && strings.ToLower(claims.HD) == g.allowedDomain {
		return true
	}
	return false
}
