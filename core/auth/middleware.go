package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coursehub/coursehub/api/web"
	"github.com/coursehub/coursehub/api/weberr"
	"github.com/coursehub/coursehub/core/claims"
)

// Authenticate requires a valid bearer access token on the request and
// loads its claims into the context.
func Authenticate(a *Core) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			value, err := bearer(r)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			clm, err := a.ParseAccessToken(value)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin requires the authenticated caller to carry the admin role.
func Admin(a *Core) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !claims.IsAdmin(ctx) {
				return weberr.NotAuthorized(errors.New("caller is not an admin"))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func bearer(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header is not a bearer token")
	}

	return parts[1], nil
}
