// ABOUTME: Store methods for user rows: creation, lookup, token-version bumps.
// ABOUTME: Not-found resolves to (nil, nil), never an error.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is one users row.
type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	TokenVersion int
	CreatedAt    time.Time
}

// CreateUser inserts a new user and returns the created row.
func (s *Store) CreateUser(ctx context.Context, email, displayName, passwordHash string) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, display_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, display_name, avatar_url, password_hash, token_version, created_at`,
		email, displayName, passwordHash,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the user with the given email, or (nil, nil) if none exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email = $1", email)
}

// GetUserByID returns the user with the given id, or (nil, nil) if none exists.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*User, error) {
	u := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, display_name, avatar_url, password_hash, token_version, created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &u.AvatarURL, &u.PasswordHash, &u.TokenVersion, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateUserProfile updates display name and avatar URL.
func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, displayName, avatarURL string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET display_name = $2, avatar_url = $3 WHERE id = $1`,
		id, displayName, avatarURL,
	); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// UpdatePasswordHash stores a new password hash and increments token_version
// so every outstanding refresh token is invalidated.
func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, token_version = token_version + 1 WHERE id = $1`,
		id, hash,
	); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// BumpTokenVersion increments the user's token_version, invalidating all
// previously issued refresh tokens (logout-all).
func (s *Store) BumpTokenVersion(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET token_version = token_version + 1 WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	return nil
}
