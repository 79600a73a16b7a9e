package config

import "time"

type Config struct {
	Web       Web
	Cors      Cors
	DB        DB
	Auth      Auth
	Stripe    Stripe
	Paypal    Paypal
	Payment   Payment
	RateLimit RateLimit
}

type Payment struct {
	GatewayTimeout time.Duration `conf:"default:10s"`
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:coursehub"`
	DisableTLS bool   `conf:"default:true"`
}

type Auth struct {
	// ActiveKey signs and verifies access tokens. It must be long and secret.
	ActiveKey     string        `conf:"default:CHANGE_ME_32_BYTES_MINIMUM_KEY!,mask"`
	Issuer        string        `conf:"default:coursehub"`
	AccessTTL     time.Duration `conf:"default:15m"`
	RefreshTTL    time.Duration `conf:"default:720h"`
	RefreshLength int           `conf:"default:48"`
}

type Stripe struct {
	APISecret string `conf:"mask"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type RateLimit struct {
	Burst         int           `conf:"default:30"`
	Interval      time.Duration `conf:"default:100ms"`
	ExpiryMinutes int           `conf:"default:10"`
}
