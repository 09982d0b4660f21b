package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserToken is a stored Trakt access token keyed by an opaque user ID.
type UserToken struct {
	UserID       string     `json:"userId"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TokenRepository persists user tokens in SQLite.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Upsert stores or replaces the token for a user.
func (r *TokenRepository) Upsert(ctx context.Context, token UserToken) error {
	if token.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if token.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`,
		token.UserID, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// Get returns the stored token for a user, or nil if none exists.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*UserToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM user_tokens WHERE user_id = ?`, userID)

	var token UserToken
	err := row.Scan(&token.UserID, &token.AccessToken, &token.RefreshToken,
		&token.ExpiresAt, &token.CreatedAt, &token.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &token, nil
}

// Delete removes the stored token for a user. Deleting a missing user is
// not an error.
func (r *TokenRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
