package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password, so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers an unknown, already rotated, revoked or
	// expired refresh token.
	ErrInvalidToken = errors.New("invalid or expired refresh token")
)

// RefreshToken is the stored side of a session: an opaque secret looked up
// by its literal value. Rotation deletes the row and inserts a new one, so
// a presented value can be consumed at most once.
type RefreshToken struct {
	ID        string    `db:"token_id"`
	UserID    string    `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

type TokenPair struct {
	AccessToken   string    `json:"accessToken"`
	AccessExpiry  time.Time `json:"accessExpiry"`
	RefreshToken  string    `json:"refreshToken"`
	RefreshExpiry time.Time `json:"refreshExpiry"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
