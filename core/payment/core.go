package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/validate"
)

// Storer is the repository surface of the payment aggregate.
type Storer interface {
	Create(ctx context.Context, p Payment) error
	CreateCaptured(ctx context.Context, p Payment) error
	Fetch(ctx context.Context, paymentID string) (Payment, error)
	FetchByUser(ctx context.Context, userID string) ([]Payment, error)
}

// Orders is the slice of the order aggregate the processor consumes.
type Orders interface {
	Fetch(ctx context.Context, orderID string) (order.Order, error)
}

type Core struct {
	store    Storer
	orders   Orders
	gateways map[string]Gateway
	timeout  time.Duration
	now      func() time.Time
}

func NewCore(store Storer, orders Orders, gateways map[string]Gateway, timeout time.Duration) *Core {
	return &Core{
		store:    store,
		orders:   orders,
		gateways: gateways,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Process charges the passed pending order through the named provider and
// records the outcome. The gateway call is bounded by the configured
// timeout and runs outside any database transaction, so gateway latency
// never blocks unrelated basket or order writes. An outcome is always
// resolved: success marks the order paid, everything else records a failed
// payment and leaves the order pending for a retry.
func (c *Core) Process(ctx context.Context, userID string, pn PaymentNew) (Payment, error) {
	ord, err := c.orders.Fetch(ctx, pn.OrderID)
	if err != nil {
		return Payment{}, fmt.Errorf("fetching order[%s]: %w", pn.OrderID, err)
	}

	if ord.UserID != userID {
		return Payment{}, order.ErrNotFound
	}
	if ord.Status != order.Pending {
		return Payment{}, ErrOrderNotPending
	}
	if pn.Amount != ord.TotalAmount {
		return Payment{}, ErrAmountMismatch
	}

	gw, ok := c.gateways[pn.Provider]
	if !ok {
		return Payment{}, ErrUnknownProvider
	}

	req := ChargeRequest{
		Amount:      ord.TotalAmount,
		Currency:    pn.Currency,
		CustomerRef: ord.UserID,
		Description: fmt.Sprintf("order %s", ord.ID),
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// A missing or ambiguous answer is never assumed to be a success.
	res, chargeErr := gw.Charge(cctx, req)

	p := Payment{
		ID:          validate.GenerateID(),
		OrderID:     ord.ID,
		UserID:      ord.UserID,
		TotalAmount: ord.TotalAmount,
		Provider:    pn.Provider,
		Currency:    pn.Currency,
		PaymentDate: c.now(),
	}
	if res.TransactionID != "" {
		p.TransactionID = &res.TransactionID
	}

	if chargeErr != nil || !res.Succeeded {
		p.Status = Failed
		p.Successful = false

		if err := c.store.Create(ctx, p); err != nil {
			return Payment{}, fmt.Errorf("recording failed payment: %w", err)
		}

		if chargeErr != nil {
			return Payment{}, fmt.Errorf("charging order[%s]: %v: %w", ord.ID, chargeErr, ErrGateway)
		}
		return Payment{}, fmt.Errorf("charging order[%s]: declined: %w", ord.ID, ErrGateway)
	}

	p.Status = Succeeded
	p.Successful = true

	if err := c.store.CreateCaptured(ctx, p); err != nil {
		return Payment{}, fmt.Errorf("recording captured payment: %w", err)
	}

	return p, nil
}

func (c *Core) Get(ctx context.Context, paymentID string) (Payment, error) {
	return c.store.Fetch(ctx, paymentID)
}

func (c *Core) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	return c.store.FetchByUser(ctx, userID)
}
