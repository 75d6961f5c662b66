package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user-records-service/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user email is already taken.
	// The database unique index is the backstop for the check-then-write
	// race on concurrent identical-email submissions.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDuplicatePrefix is returned when a generated key prefix collides
	// with an existing credential.
	ErrDuplicatePrefix = errors.New("key prefix already exists")
)

// APIKeyStore defines operations for credential management.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	// GetActiveAPIKeyByPrefix resolves an active credential by its public
	// prefix. Inactive credentials are never matched.
	GetActiveAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error)
	GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, page, perPage int) ([]*model.APIKey, int, error)
	// TouchAPIKey records a successful authentication. Best-effort.
	TouchAPIKey(ctx context.Context, id uuid.UUID, when time.Time) error
	SetAPIKeyActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UserFilters narrows and orders a user listing.
type UserFilters struct {
	// Search matches name or email, case-insensitively.
	Search string
	// OrderBy is a validated column name; Desc reverses the order.
	OrderBy string
	Desc    bool
	Page    int
	PerPage int
}

// UserStore defines operations for user record management.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context, filters UserFilters) ([]*model.User, int, error)
	// UpdateUser persists every mutable field of the record in one write.
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// EmailExists reports whether email is taken, case-insensitively,
	// excluding the record identified by exclude when non-nil.
	EmailExists(ctx context.Context, email string, exclude *uuid.UUID) (bool, error)
}

// Store combines both stores plus a liveness probe.
type Store interface {
	APIKeyStore
	UserStore
	Ping(ctx context.Context) error
}
