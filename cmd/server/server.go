package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/coursehub/coursehub/api"
	"github.com/coursehub/coursehub/api/middleware"
	"github.com/coursehub/coursehub/config"
	"github.com/coursehub/coursehub/core/auth"
	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/core/course"
	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/core/payment"
	"github.com/coursehub/coursehub/core/user"
	"github.com/coursehub/coursehub/database"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "COURSEHUB"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate db schema: %w", err)
	}

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if _, err = pp.GetAccessToken(context.TODO()); err != nil {
		return fmt.Errorf("failed to get the first paypal access token: %w", err)
	}

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	users := user.NewStore(db)
	courses := course.NewStore(db)
	baskets := basket.NewCore(basket.NewStore(db), courses)

	orderStore := order.NewStore(db)
	orders := order.NewCore(orderStore, baskets)

	gateways := map[string]payment.Gateway{
		"stripe": payment.NewStripeGateway(strp),
		"paypal": payment.NewPaypalGateway(pp),
	}
	payments := payment.NewCore(payment.NewStore(db), orderStore, gateways, cfg.Payment.GatewayTimeout)

	authCore := auth.NewCore(auth.Config{
		ActiveKey:     []byte(cfg.Auth.ActiveKey),
		Issuer:        cfg.Auth.Issuer,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		RefreshLength: cfg.Auth.RefreshLength,
	}, users, auth.NewStore(db))

	limiter := middleware.NewLimiter(
		cfg.RateLimit.Burst,
		cfg.RateLimit.ExpiryMinutes,
		middleware.Every(cfg.RateLimit.Interval),
	)

	mux := api.APIMux(api.APIConfig{
		CorsOrigin: cfg.Cors.Origin,
		Log:        logger,
		Limiter:    limiter,
		Auth:       authCore,
		Users:      users,
		Courses:    courses,
		Baskets:    baskets,
		Orders:     orders,
		Payments:   payments,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}
