package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user-records-service/internal/model"
)

// Memory is an in-process Store used in tests and local development.
type Memory struct {
	mu    sync.RWMutex
	keys  map[uuid.UUID]*model.APIKey
	users map[uuid.UUID]*model.User
}

func NewMemory() *Memory {
	return &Memory{
		keys:  make(map[uuid.UUID]*model.APIKey),
		users: make(map[uuid.UUID]*model.User),
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.keys {
		if existing.KeyPrefix == key.KeyPrefix {
			return ErrDuplicatePrefix
		}
	}

	key.ID = uuid.New()
	key.CreatedAt = time.Now().UTC()
	m.keys[key.ID] = cloneKey(key)
	return nil
}

func (m *Memory) GetActiveAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.keys {
		if key.KeyPrefix == prefix && key.IsActive {
			return cloneKey(key), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneKey(key), nil
}

func (m *Memory) ListAPIKeys(ctx context.Context, page, perPage int) ([]*model.APIKey, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*model.APIKey, 0, len(m.keys))
	for _, key := range m.keys {
		all = append(all, cloneKey(key))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, page, perPage), len(all), nil
}

func (m *Memory) TouchAPIKey(ctx context.Context, id uuid.UUID, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	key.LastUsed = &when
	return nil
}

func (m *Memory) SetAPIKeyActive(ctx context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[id]
	if !ok {
		return ErrNotFound
	}
	key.IsActive = active
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = cloneUser(user)
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(user), nil
}

func (m *Memory) ListUsers(ctx context.Context, filters UserFilters) ([]*model.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*model.User
	search := strings.ToLower(filters.Search)
	for _, user := range m.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Name), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		all = append(all, cloneUser(user))
	}

	sortUsers(all, filters.OrderBy, filters.Desc)
	return paginate(all, filters.Page, filters.PerPage), len(all), nil
}

func (m *Memory) UpdateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}

	for id, other := range m.users {
		if id != user.ID && strings.EqualFold(other.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}

	updated := cloneUser(user)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = updated
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) EmailExists(ctx context.Context, email string, exclude *uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, user := range m.users {
		if exclude != nil && id == *exclude {
			continue
		}
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func sortUsers(users []*model.User, orderBy string, desc bool) {
	less := func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) }
	switch orderBy {
	case "name":
		less = func(i, j int) bool { return users[i].Name < users[j].Name }
	case "email":
		less = func(i, j int) bool { return users[i].Email < users[j].Email }
	case "age":
		less = func(i, j int) bool { return derefAge(users[i].Age) < derefAge(users[j].Age) }
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(users, less)
}

func derefAge(age *int) int {
	if age == nil {
		return -1
	}
	return *age
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cloneKey(key *model.APIKey) *model.APIKey {
	out := *key
	if key.Permissions != nil {
		out.Permissions = make(map[string][]string, len(key.Permissions))
		for resource, actions := range key.Permissions {
			out.Permissions[resource] = append([]string(nil), actions...)
		}
	}
	return &out
}

func cloneUser(user *model.User) *model.User {
	out := *user
	return &out
}
