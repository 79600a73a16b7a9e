package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/coursehub/coursehub/api/web"
	"github.com/coursehub/coursehub/api/weberr"
	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/core/claims"
	"github.com/coursehub/coursehub/validate"
)

func HandleCheckout(c *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		ord, err := c.Complete(ctx, clm.UserID)
		if err != nil {
			switch {
			case errors.Is(err, basket.ErrNoActiveBasket):
				return weberr.NotFound(err)
			case errors.Is(err, ErrEmptyBasket):
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusCreated)
	}
}

func HandleShow(c *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := c.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsAdmin(ctx) && ord.UserID != clm.UserID {
			return weberr.NotFound(errors.New("order does not belong to caller"))
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleList(c *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		ords, err := c.ListByUser(ctx, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}
