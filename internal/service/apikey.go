package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/middleware"
	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/store"
)

const (
	defaultRateLimit = 1000
	maxRateLimit     = 100000

	// prefixRetries bounds regeneration attempts on a prefix collision.
	prefixRetries = 5
)

// APIKeyService handles credential business logic.
type APIKeyService struct {
	store store.APIKeyStore
}

// NewAPIKeyService creates a new credential service.
func NewAPIKeyService(store store.APIKeyStore) *APIKeyService {
	return &APIKeyService{store: store}
}

// CreateAPIKeyInput contains the parameters for creating a new credential.
type CreateAPIKeyInput struct {
	Name        string
	Permissions map[string][]string
	RateLimit   *int
	ExpiresAt   *time.Time
}

// CreateAPIKeyResult contains the output of a successful key creation.
// RawKey is the plaintext secret, returned exactly once; only its hash
// is persisted.
type CreateAPIKeyResult struct {
	APIKey *model.APIKey
	RawKey string
}

// Create validates input, generates a new credential, and persists it.
func (s *APIKeyService) Create(ctx context.Context, input CreateAPIKeyInput) (*CreateAPIKeyResult, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewBadRequest("invalid_request", "name is required")
	}
	if err := validatePermissions(input.Permissions); err != nil {
		return nil, NewBadRequest("invalid_request", err.Error())
	}

	rateLimit := defaultRateLimit
	if input.RateLimit != nil {
		if *input.RateLimit < 1 || *input.RateLimit > maxRateLimit {
			return nil, NewBadRequest("invalid_request", fmt.Sprintf("rate_limit must be between 1 and %d", maxRateLimit))
		}
		rateLimit = *input.RateLimit
	}

	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now().UTC()) {
		return nil, NewBadRequest("invalid_request", "expires_at must be in the future")
	}

	for attempt := 0; attempt < prefixRetries; attempt++ {
		rawKey, err := generateSecret()
		if err != nil {
			log.Error().Err(err).Msg("failed to generate API key")
			return nil, NewInternal("internal_error", "Failed to create API key")
		}

		apiKey := &model.APIKey{
			Name:        strings.TrimSpace(input.Name),
			KeyHash:     middleware.SHA256Hex(rawKey),
			KeyPrefix:   rawKey[:model.PrefixLength],
			Permissions: input.Permissions,
			RateLimit:   rateLimit,
			IsActive:    true,
			ExpiresAt:   input.ExpiresAt,
		}

		err = s.store.CreateAPIKey(ctx, apiKey)
		if errors.Is(err, store.ErrDuplicatePrefix) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to create API key")
			return nil, NewInternal("internal_error", "Failed to create API key")
		}

		return &CreateAPIKeyResult{APIKey: apiKey, RawKey: rawKey}, nil
	}

	log.Error().Int("attempts", prefixRetries).Msg("key prefix collisions exhausted retries")
	return nil, NewInternal("internal_error", "Failed to create API key")
}

// Get returns a credential by ID.
func (s *APIKeyService) Get(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	apiKey, err := s.store.GetAPIKeyByID(ctx, id)
	if err != nil {
		return nil, NewNotFound("not_found", "API key not found")
	}
	return apiKey, nil
}

// List returns a page of credentials plus the total count.
func (s *APIKeyService) List(ctx context.Context, page, perPage int) ([]*model.APIKey, int, error) {
	keys, total, err := s.store.ListAPIKeys(ctx, page, perPage)
	if err != nil {
		log.Error().Err(err).Msg("failed to list API keys")
		return nil, 0, NewInternal("internal_error", "Failed to list API keys")
	}
	return keys, total, nil
}

// Revoke deactivates a credential. Revoked credentials never authenticate
// again but are kept so the prefix stays reserved.
func (s *APIKeyService) Revoke(ctx context.Context, id uuid.UUID) error {
	apiKey, err := s.store.GetAPIKeyByID(ctx, id)
	if err != nil {
		return NewNotFound("not_found", "API key not found")
	}

	if !apiKey.IsActive {
		return NewBadRequest("invalid_status", "API key is already revoked")
	}

	if err := s.store.SetAPIKeyActive(ctx, id, false); err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to revoke API key")
		return NewInternal("internal_error", "Failed to revoke API key")
	}

	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePermissions(permissions map[string][]string) error {
	if len(permissions) == 0 {
		return fmt.Errorf("permissions cannot be empty")
	}

	valid := make(map[string]struct{}, len(model.ValidActions()))
	for _, action := range model.ValidActions() {
		valid[action] = struct{}{}
	}

	for resource, actions := range permissions {
		if strings.TrimSpace(resource) == "" {
			return fmt.Errorf("permission resource name cannot be empty")
		}
		if len(actions) == 0 {
			return fmt.Errorf("permissions for %q cannot be empty", resource)
		}
		seen := make(map[string]struct{}, len(actions))
		for _, action := range actions {
			if _, ok := valid[action]; !ok {
				return fmt.Errorf("invalid action %q for resource %q; valid actions are: %s",
					action, resource, strings.Join(model.ValidActions(), ", "))
			}
			if _, dup := seen[action]; dup {
				return fmt.Errorf("duplicate action %q for resource %q", action, resource)
			}
			seen[action] = struct{}{}
		}
	}

	return nil
}
