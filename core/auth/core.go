package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/core/claims"
	"github.com/coursehub/coursehub/core/user"
	"github.com/coursehub/coursehub/random"
	"github.com/coursehub/coursehub/validate"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	ActiveKey     []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RefreshLength int
}

// UserStore is the slice of the identity subsystem this core consumes.
type UserStore interface {
	Fetch(ctx context.Context, id string) (user.User, error)
	FetchByEmail(ctx context.Context, email string) (user.User, error)
}

// TokenStore is the durable record of issued refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, t RefreshToken) error
	Consume(ctx context.Context, value string) (RefreshToken, error)
	Delete(ctx context.Context, value string) error
}

type Core struct {
	cfg    Config
	users  UserStore
	tokens TokenStore
	now    func() time.Time
}

func NewCore(cfg Config, users UserStore, tokens TokenStore) *Core {
	return &Core{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Login verifies the passed credentials and opens a session: a short-lived
// signed access token plus a stored long-lived refresh token.
func (c *Core) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	u, err := c.users.FetchByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("fetching user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(creds.Password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	return c.pair(ctx, u)
}

// Refresh rotates the session bound to the presented refresh token. The old
// value is consumed first, so it can never produce two valid sessions: a
// replayed rotation fails with ErrInvalidToken.
func (c *Core) Refresh(ctx context.Context, value string) (TokenPair, error) {
	t, err := c.tokens.Consume(ctx, value)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("consuming refresh token: %w", err)
	}

	// Expiry is checked lazily on use. The row is already gone at this
	// point, which is the right outcome for an expired token too.
	if c.now().After(t.ExpiresAt) {
		return TokenPair{}, ErrInvalidToken
	}

	u, err := c.users.Fetch(ctx, t.UserID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("fetching user[%s] of refresh token: %w", t.UserID, err)
	}

	return c.pair(ctx, u)
}

// Revoke closes the session bound to the presented refresh token.
// Revoking an unknown or already revoked value is a no-op.
func (c *Core) Revoke(ctx context.Context, value string) error {
	if err := c.tokens.Delete(ctx, value); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

func (c *Core) pair(ctx context.Context, u user.User) (TokenPair, error) {
	now := c.now()
	accessExpiry := now.Add(c.cfg.AccessTTL)

	ac := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
		Role: u.Role,
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ac).SignedString(c.cfg.ActiveKey)
	if err != nil {
		return TokenPair{}, fmt.Errorf("signing access token: %w", err)
	}

	value, err := random.StringSecure(c.cfg.RefreshLength)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generating refresh token: %w", err)
	}

	refresh := RefreshToken{
		ID:        validate.GenerateID(),
		UserID:    u.ID,
		Token:     value,
		ExpiresAt: now.Add(c.cfg.RefreshTTL),
		CreatedAt: now,
	}

	if err := c.tokens.Create(ctx, refresh); err != nil {
		return TokenPair{}, fmt.Errorf("storing refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:   access,
		AccessExpiry:  accessExpiry,
		RefreshToken:  refresh.Token,
		RefreshExpiry: refresh.ExpiresAt,
	}, nil
}

// ParseAccessToken verifies the signature and expiry of the passed access
// token and extracts its claims.
func (c *Core) ParseAccessToken(value string) (claims.Claims, error) {
	var ac accessClaims
	_, err := jwt.ParseWithClaims(value, &ac, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.cfg.ActiveKey, nil
	})
	if err != nil {
		return claims.Claims{}, fmt.Errorf("parsing access token: %w", err)
	}

	return claims.Claims{UserID: ac.Subject, Role: ac.Role}, nil
}
