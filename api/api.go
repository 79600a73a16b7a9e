package api

import (
	"context"
	"net/http"

	"github.com/coursehub/coursehub/api/middleware"
	"github.com/coursehub/coursehub/api/web"
	"github.com/coursehub/coursehub/core/auth"
	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/core/course"
	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/core/payment"
	"github.com/coursehub/coursehub/core/user"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Limiter    *middleware.Limiter
	Auth       *auth.Core
	Users      *user.Store
	Courses    *course.Store
	Baskets    *basket.Core
	Orders     *order.Core
	Payments   *payment.Core
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Auth)
	admin := auth.Admin(cfg.Auth)

	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.Auth))
	a.Handle(http.MethodPost, "/auth/refresh", auth.HandleRefresh(cfg.Auth))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Auth))

	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.Users), authen, admin)

	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.Courses))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.Courses))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.Courses), authen, admin)

	a.Handle(http.MethodGet, "/basket", basket.HandleShow(cfg.Baskets), authen)
	a.Handle(http.MethodGet, "/baskets/{id}", basket.HandleShowByID(cfg.Baskets), authen, admin)
	a.Handle(http.MethodPut, "/basket/items", basket.HandleAddItem(cfg.Baskets), authen)
	a.Handle(http.MethodDelete, "/basket/items/{course_id}", basket.HandleDeleteItem(cfg.Baskets), authen)
	a.Handle(http.MethodDelete, "/basket", basket.HandleClear(cfg.Baskets), authen)

	a.Handle(http.MethodPost, "/orders", order.HandleCheckout(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.Orders), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.Orders), authen)

	a.Handle(http.MethodPost, "/payments", payment.HandleProcess(cfg.Payments), authen)
	a.Handle(http.MethodGet, "/payments/{id}", payment.HandleShow(cfg.Payments), authen)
	a.Handle(http.MethodGet, "/payments", payment.HandleList(cfg.Payments), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

