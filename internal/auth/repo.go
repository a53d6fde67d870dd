package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// User is an analyst account on the dashboard. Every mutating endpoint
// (dataset import, layer refresh) is tied to one; token_version lets a
// password change or logout revoke every token minted before it.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, password_hash, token_version, created_at`

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, ?)
	`, u.ID, strings.TrimSpace(u.Username), strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash)

	if err != nil {
		return fmt.Errorf("create analyst: %w", err)
	}
	return nil
}

// Emails are stored lowercase, so lookup is case-insensitive.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(ctx, `LOWER(email) = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.one(ctx, `username = ?`, strings.TrimSpace(username))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.one(ctx, `id = ?`, id)
}

func (r *Repo) one(ctx context.Context, where string, arg any) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load analyst: %w", err)
	}
	return &u, nil
}

// GetTokenVersion reports the current revocation counter. A deleted
// analyst is an error, not version zero — their tokens must not keep
// working.
func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("analyst %s not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

// UpdatePasswordAndBumpTokenVersion swaps the password hash and
// invalidates all outstanding tokens in one statement.
func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireOneRow(res, "update password")
}

// BumpTokenVersion revokes every outstanding token (logout-everywhere).
func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return requireOneRow(res, "bump token version")
}

func requireOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: analyst not found", op)
	}
	return nil
}
