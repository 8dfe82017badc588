package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openclaw/gateway/internal/domain"
	"github.com/openclaw/gateway/internal/domain/user"
)

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role, totp_secret, totp_enabled, backup_codes, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.TOTPSecret, u.TOTPEnabled, pgTextArray(u.BackupCodes), u.CreatedAt, u.UpdatedAt, nullTime(u.LastLoginAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row scannable) (user.User, error) {
	var u user.User
	var lastLogin *time.Time
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.TOTPSecret, &u.TOTPEnabled, &u.BackupCodes, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return user.User{}, err
	}
	if lastLogin != nil {
		u.LastLoginAt = *lastLogin
	}
	return u, nil
}

const selectUserColumns = `id, email, display_name, password_hash, role, totp_secret, totp_enabled, backup_codes, created_at, updated_at, last_login_at`

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user by email %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectUserColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return orEmpty(users), rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET email = $2, display_name = $3, password_hash = $4, role = $5, totp_secret = $6, totp_enabled = $7, backup_codes = $8, updated_at = $9, last_login_at = $10
		WHERE id = $1`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.TOTPSecret, u.TOTPEnabled, pgTextArray(u.BackupCodes), u.UpdatedAt, nullTime(u.LastLoginAt),
	)
	return execExpectOne(tag, err, "update user %s", u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete user %s", id)
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
