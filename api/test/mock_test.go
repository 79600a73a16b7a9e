package test

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coursehub/coursehub/api/web"
	"github.com/gorilla/mux"
	mock "github.com/stripe/stripe-mock/param"
)

// mockStripe serves the slice of the stripe API the gateway talks to.
// Set fail to refuse charges, fixedID to answer every charge with the
// same transaction id.
type mockStripe struct {
	mu      sync.Mutex
	fail    bool
	fixedID string
	seq     int
	amounts []int64
}

func newMockStripe() *mockStripe {
	return &mockStripe{}
}

func (m *mockStripe) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *mockStripe) setFixedID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixedID = id
}

func (m *mockStripe) handler() http.Handler {
	charge := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		params, _ := mock.ParseParams(r)
		if s, ok := params["amount"].(string); ok {
			var amount int64
			fmt.Sscanf(s, "%d", &amount)
			m.amounts = append(m.amounts, amount)
		}

		if m.fail {
			body := map[string]any{"error": map[string]any{
				"type":    "card_error",
				"code":    "card_declined",
				"message": "Your card was declined.",
			}}
			web.Respond(context.Background(), w, body, http.StatusPaymentRequired)
			return
		}

		id := m.fixedID
		if id == "" {
			m.seq++
			id = fmt.Sprintf("ch_test_%d", m.seq)
		}

		body := map[string]any{
			"id":     id,
			"object": "charge",
			"status": "succeeded",
		}
		web.Respond(context.Background(), w, body, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/charges", charge).Methods("POST")
	return r
}

// mockPaypal serves the oauth and checkout-order endpoints the paypal
// client needs for a synchronous create-and-capture charge.
type mockPaypal struct {
	mu   sync.Mutex
	fail bool
	seq  int
}

func newMockPaypal() *mockPaypal {
	return &mockPaypal{}
}

func (m *mockPaypal) handler() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, body, http.StatusOK)
	})

	create := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.fail {
			web.Respond(context.Background(), w, nil, http.StatusUnprocessableEntity)
			return
		}

		m.seq++
		body := map[string]any{
			"id":     fmt.Sprintf("pp_test_%d", m.seq),
			"status": "CREATED",
		}
		web.Respond(context.Background(), w, body, http.StatusCreated)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"id":     web.Param(r, "id"),
			"status": "COMPLETED",
		}
		web.Respond(context.Background(), w, body, http.StatusCreated)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", create).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}
