package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user-records-service/internal/model"
)

const userColumns = `id, name, email, phone_number, address, age, profile_picture, created_at, updated_at`

// orderColumns maps the validated OrderBy values to SQL columns. Filters are
// pre-validated by the service layer; the map is a second line of defense so
// no caller input ever reaches the ORDER BY clause directly.
var orderColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"email":      "email",
	"age":        "age",
}

func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, phone_number, address, age, profile_picture)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		user.Name, user.Email, user.PhoneNumber, user.Address, user.Age, user.ProfilePicture,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanUserFromRow(rows)
}

func (p *Postgres) ListUsers(ctx context.Context, filters UserFilters) ([]*model.User, int, error) {
	where := ""
	args := []interface{}{}
	if filters.Search != "" {
		where = `WHERE name ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	column, ok := orderColumns[filters.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if filters.Desc {
		direction = "DESC"
	}

	offset := (filters.Page - 1) * filters.PerPage
	args = append(args, filters.PerPage, offset)
	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		userColumns, where, column, direction, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUserFromRow(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, user *model.User) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, email = $2, phone_number = $3, address = $4,
			age = $5, profile_picture = $6, updated_at = NOW()
		WHERE id = $7
	`,
		user.Name, user.Email, user.PhoneNumber, user.Address,
		user.Age, user.ProfilePicture, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EmailExists(ctx context.Context, email string, exclude *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)`
	args := []interface{}{email}
	if exclude != nil {
		query += ` AND id <> $2`
		args = append(args, *exclude)
	}
	query += `)`

	var exists bool
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("email exists: %w", err)
	}
	return exists, nil
}

func scanUserFromRow(rows pgx.Rows) (*model.User, error) {
	var user model.User
	err := rows.Scan(
		&user.ID, &user.Name, &user.Email, &user.PhoneNumber,
		&user.Address, &user.Age, &user.ProfilePicture,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
