package model

import (
	"time"

	"github.com/google/uuid"
)

// Actions that can be granted to an API key for a resource.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionAdmin  = "admin"
)

// ValidActions lists every action a permission map may contain.
func ValidActions() []string {
	return []string{ActionRead, ActionWrite, ActionDelete, ActionAdmin}
}

// PrefixLength is the number of leading secret characters stored in clear
// and used for credential lookup.
const PrefixLength = 8

// APIKey is a bearer credential identifying a calling application. The key
// itself is the authenticated principal; there is no separate user identity.
type APIKey struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	KeyHash     string              `json:"-"`
	KeyPrefix   string              `json:"key_prefix"`
	Permissions map[string][]string `json:"permissions"`
	RateLimit   int                 `json:"rate_limit"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	LastUsed    *time.Time          `json:"last_used,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
}

// HasPermission reports whether the key grants action on resource.
// The "admin" action on a resource implies every other action on it.
func (k *APIKey) HasPermission(resource, action string) bool {
	actions, ok := k.Permissions[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action || a == ActionAdmin {
			return true
		}
	}
	return false
}

// Expired reports whether the key has an expiry in the past.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
