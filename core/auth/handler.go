package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/coursehub/coursehub/api/web"
	"github.com/coursehub/coursehub/api/weberr"
	"github.com/coursehub/coursehub/validate"
)

func HandleLogin(a *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds Credentials
		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(creds); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		pair, err := a.Login(ctx, creds)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) {
				return weberr.NotAuthorized(err)
			}
			return err
		}

		return web.Respond(ctx, w, pair, http.StatusOK)
	}
}

func HandleRefresh(a *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req RefreshRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		pair, err := a.Refresh(ctx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				return weberr.NotAuthorized(err)
			}
			return err
		}

		return web.Respond(ctx, w, pair, http.StatusOK)
	}
}

func HandleLogout(a *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req RefreshRequest
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if err := a.Revoke(ctx, req.RefreshToken); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
