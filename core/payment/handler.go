package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/coursehub/coursehub/api/web"
	"github.com/coursehub/coursehub/api/weberr"
	"github.com/coursehub/coursehub/core/claims"
	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/validate"
)

func HandleProcess(c *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		var pn PaymentNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}
		if err := validate.CheckID(pn.OrderID); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := c.Process(ctx, clm.UserID, pn)
		if err != nil {
			switch {
			case errors.Is(err, order.ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrOrderNotPending),
				errors.Is(err, ErrAmountMismatch),
				errors.Is(err, ErrDuplicateTransaction):
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, ErrUnknownProvider):
				return weberr.BadRequest(err)
			case errors.Is(err, ErrGateway):
				// Retryable: the order is still pending.
				return weberr.NewError(err, ErrGateway.Error(), http.StatusBadGateway)
			}
			return err
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
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

		p, err := c.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsAdmin(ctx) && p.UserID != clm.UserID {
			return weberr.NotFound(errors.New("payment does not belong to caller"))
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleList(c *Core) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(err)
		}

		ps, err := c.ListByUser(ctx, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}
