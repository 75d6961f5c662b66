package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user-records-service/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, permissions,
	rate_limit, is_active, created_at, last_used, expires_at`

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	perms, err := json.Marshal(key.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}

	err = p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (name, key_hash, key_prefix, permissions, rate_limit, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`,
		key.Name, key.KeyHash, key.KeyPrefix, perms,
		key.RateLimit, key.IsActive, key.ExpiresAt,
	).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePrefix
		}
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

func (p *Postgres) GetActiveAPIKeyByPrefix(ctx context.Context, prefix string) (*model.APIKey, error) {
	return p.scanAPIKey(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND is_active = TRUE`, prefix)
}

func (p *Postgres) GetAPIKeyByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	return p.scanAPIKey(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
}

func (p *Postgres) ListAPIKeys(ctx context.Context, page, perPage int) ([]*model.APIKey, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count api_keys: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := p.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		key, err := scanAPIKeyFromRow(rows)
		if err != nil {
			return nil, 0, err
		}
		keys = append(keys, key)
	}
	return keys, total, nil
}

func (p *Postgres) TouchAPIKey(ctx context.Context, id uuid.UUID, when time.Time) error {
	_, err := p.pool.Exec(ctx, `UPDATE api_keys SET last_used = $1 WHERE id = $2`, when, id)
	if err != nil {
		return fmt.Errorf("touch api_key: %w", err)
	}
	return nil
}

func (p *Postgres) SetAPIKeyActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := p.pool.Exec(ctx, `UPDATE api_keys SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("update api_key active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) scanAPIKey(ctx context.Context, query string, args ...interface{}) (*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query api_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanAPIKeyFromRow(rows)
}

func scanAPIKeyFromRow(rows pgx.Rows) (*model.APIKey, error) {
	var key model.APIKey
	var permsJSON []byte

	err := rows.Scan(
		&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &permsJSON,
		&key.RateLimit, &key.IsActive, &key.CreatedAt, &key.LastUsed, &key.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan api_key: %w", err)
	}

	if err := json.Unmarshal(permsJSON, &key.Permissions); err != nil {
		return nil, fmt.Errorf("unmarshal permissions: %w", err)
	}

	return &key, nil
}
