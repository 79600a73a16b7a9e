package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t RefreshToken) error {
	const q = `
	INSERT INTO refresh_tokens
		(token_id, user_id, token, expires_at, created_at)
	VALUES
		(:token_id, :user_id, :token, :expires_at, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, t); err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}

	return nil
}

// Consume atomically deletes the token row matching the passed value and
// returns it. Two concurrent rotations of the same value race on this
// delete: exactly one gets the row, the other gets ErrInvalidToken.
func (s *Store) Consume(ctx context.Context, value string) (RefreshToken, error) {
	const q = `
	DELETE FROM refresh_tokens WHERE token = $1
	RETURNING token_id, user_id, token, expires_at, created_at`

	var t RefreshToken
	if err := sqlx.GetContext(ctx, s.db, &t, q, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RefreshToken{}, ErrInvalidToken
		}
		return RefreshToken{}, fmt.Errorf("consuming refresh token: %w", err)
	}

	return t, nil
}

// Delete removes the token row matching the passed value. Deleting an
// absent value is not an error.
func (s *Store) Delete(ctx context.Context, value string) error {
	const q = `DELETE FROM refresh_tokens WHERE token = $1`

	if _, err := s.db.ExecContext(ctx, q, value); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}

	return nil
}
