package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/coursehub/coursehub/api"
	"github.com/coursehub/coursehub/config"
	"github.com/coursehub/coursehub/core/auth"
	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/core/course"
	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/core/payment"
	"github.com/coursehub/coursehub/core/user"
	"github.com/coursehub/coursehub/database"
	"github.com/coursehub/coursehub/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"golang.org/x/crypto/bcrypt"
)

var pgHost string

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err != nil {
		fmt.Printf("connecting to docker: %v\n", err)
		return 1
	}

	res, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=postgres",
	})
	if err != nil {
		fmt.Printf("starting postgres container: %v\n", err)
		return 1
	}
	defer pool.Purge(res)

	res.Expire(600)
	pgHost = net.JoinHostPort("localhost", res.GetPort("5432/tcp"))

	if err := pool.Retry(func() error {
		db, err := database.Open(dbConfig("postgres"))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		fmt.Printf("waiting for postgres: %v\n", err)
		return 1
	}

	return m.Run()
}

func dbConfig(name string) config.DB {
	return config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       pgHost,
		Name:       name,
		DisableTLS: true,
	}
}

type TestEnv struct {
	URL    string
	DB     *sqlx.DB
	Stripe *mockStripe
	Paypal *mockPaypal

	AdminEmail string
	AdminPass  string
	UserEmail  string
	UserPass   string
}

// NewTestEnv brings up a dedicated database plus a full server wired to
// mocked stripe and paypal backends.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	admin, err := database.Open(dbConfig("postgres"))
	if err != nil {
		return nil, fmt.Errorf("opening admin db connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating database %q: %w", name, err)
	}

	db, err := database.Open(dbConfig(name))
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	ms := newMockStripe()
	ssrv := httptest.NewServer(ms.handler())
	t.Cleanup(ssrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:           stripe.String(ssrv.URL),
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_coursehub", &stripe.Backends{API: backend, Uploads: backend})

	mp := newMockPaypal()
	psrv := httptest.NewServer(mp.handler())
	t.Cleanup(psrv.Close)

	pp, err := paypal.NewClient("test-client", "test-secret", psrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}

	users := user.NewStore(db)
	courses := course.NewStore(db)
	baskets := basket.NewCore(basket.NewStore(db), courses)

	orderStore := order.NewStore(db)
	orders := order.NewCore(orderStore, baskets)

	gateways := map[string]payment.Gateway{
		"stripe": payment.NewStripeGateway(strp),
		"paypal": payment.NewPaypalGateway(pp),
	}
	payments := payment.NewCore(payment.NewStore(db), orderStore, gateways, 5*time.Second)

	authCore := auth.NewCore(auth.Config{
		ActiveKey:     []byte("integration-test-signing-key-0123456789"),
		Issuer:        "coursehub-test",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		RefreshLength: 48,
	}, users, auth.NewStore(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mux := api.APIMux(api.APIConfig{
		Log:      logger,
		Auth:     authCore,
		Users:    users,
		Courses:  courses,
		Baskets:  baskets,
		Orders:   orders,
		Payments: payments,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := &TestEnv{
		URL:        srv.URL,
		DB:         db,
		Stripe:     ms,
		Paypal:     mp,
		AdminEmail: "admin@test.com",
		AdminPass:  "admin-pass-123",
		UserEmail:  "user@test.com",
		UserPass:   "user-pass-123",
	}

	if err := env.seed(users); err != nil {
		return nil, fmt.Errorf("seeding users: %w", err)
	}

	return env, nil
}

func (e *TestEnv) seed(users *user.Store) error {
	seed := []struct {
		email string
		pass  string
		role  string
	}{
		{e.AdminEmail, e.AdminPass, "ADMIN"},
		{e.UserEmail, e.UserPass, "USER"},
	}

	for _, s := range seed {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.pass), bcrypt.MinCost)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		u := user.User{
			ID:           validate.GenerateID(),
			Name:         s.email,
			Email:        s.email,
			Role:         s.role,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := users.Create(context.Background(), u); err != nil {
			return err
		}
	}

	return nil
}

// request performs a JSON request against the server, optionally decoding
// the response body into out, and returns the status code.
func (e *TestEnv) request(t *testing.T, method string, path string, token string, body any, out any) int {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, e.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := http.DefaultClient.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}

	return w.StatusCode
}

func (e *TestEnv) login(t *testing.T, email string, pass string) auth.TokenPair {
	t.Helper()

	var pair auth.TokenPair
	creds := auth.Credentials{Email: email, Password: pass}
	if code := e.request(t, http.MethodPost, "/auth/login", "", creds, &pair); code != http.StatusOK {
		t.Fatalf("login as %s: status code %d", email, code)
	}

	return pair
}
