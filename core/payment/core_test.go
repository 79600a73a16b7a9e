package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursehub/coursehub/core/order"
)

type fakeStore struct {
	payments []Payment
	captured map[string]bool
	orders   fakeOrders
}

func (f *fakeStore) insert(p Payment) error {
	if p.TransactionID != nil {
		if f.captured[*p.TransactionID] {
			return ErrDuplicateTransaction
		}
		f.captured[*p.TransactionID] = true
	}
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeStore) Create(ctx context.Context, p Payment) error {
	return f.insert(p)
}

func (f *fakeStore) CreateCaptured(ctx context.Context, p Payment) error {
	if err := f.insert(p); err != nil {
		return err
	}
	ord := f.orders[p.OrderID]
	ord.Status = order.Paid
	f.orders[p.OrderID] = ord
	return nil
}

func (f *fakeStore) Fetch(ctx context.Context, paymentID string) (Payment, error) {
	for _, p := range f.payments {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return Payment{}, ErrNotFound
}

func (f *fakeStore) FetchByUser(ctx context.Context, userID string) ([]Payment, error) {
	var ps []Payment
	for _, p := range f.payments {
		if p.UserID == userID {
			ps = append(ps, p)
		}
	}
	return ps, nil
}

type fakeOrders map[string]order.Order

func (f fakeOrders) Fetch(ctx context.Context, orderID string) (order.Order, error) {
	ord, ok := f[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	return ord, nil
}

type fakeGateway struct {
	result ChargeResult
	err    error
	reqs   []ChargeRequest
}

func (f *fakeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		return ChargeResult{}, errors.New("gateway call must carry a deadline")
	}
	f.reqs = append(f.reqs, req)
	return f.result, f.err
}

func testCore(gw Gateway) (*Core, *fakeStore) {
	orders := fakeOrders{
		"o1": {ID: "o1", UserID: "u1", TotalAmount: 150, Status: order.Pending},
		"o2": {ID: "o2", UserID: "u1", TotalAmount: 70, Status: order.Pending},
	}
	store := &fakeStore{captured: make(map[string]bool), orders: orders}
	gateways := map[string]Gateway{"stripe": gw}
	return NewCore(store, orders, gateways, time.Second), store
}

func charge(orderID string, amount int) PaymentNew {
	return PaymentNew{OrderID: orderID, Amount: amount, Provider: "stripe", Currency: "usd"}
}

func TestProcessSuccess(t *testing.T) {
	gw := &fakeGateway{result: ChargeResult{TransactionID: "tx-1", Succeeded: true}}
	c, store := testCore(gw)

	p, err := c.Process(context.Background(), "u1", charge("o1", 150))
	if err != nil {
		t.Fatalf("processing payment: %v", err)
	}

	if p.Status != Succeeded || !p.Successful {
		t.Fatalf("expected succeeded payment, got %+v", p)
	}
	if p.TransactionID == nil || *p.TransactionID != "tx-1" {
		t.Fatal("payment must carry the gateway transaction id")
	}
	if p.TotalAmount != 150 {
		t.Fatalf("expected amount 150, got %d", p.TotalAmount)
	}
	if got := store.orders["o1"].Status; got != order.Paid {
		t.Fatalf("expected order paid, got %q", got)
	}
	if len(gw.reqs) != 1 || gw.reqs[0].Amount != 150 || gw.reqs[0].Currency != "usd" {
		t.Fatalf("unexpected charge request: %+v", gw.reqs)
	}
}

func TestProcessGatewayError(t *testing.T) {
	gw := &fakeGateway{err: context.DeadlineExceeded}
	c, store := testCore(gw)

	_, err := c.Process(context.Background(), "u1", charge("o1", 150))
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	if len(store.payments) != 1 {
		t.Fatalf("expected 1 failed payment recorded, got %d", len(store.payments))
	}
	if p := store.payments[0]; p.Status != Failed || p.Successful {
		t.Fatalf("expected failed payment record, got %+v", p)
	}
	if got := store.orders["o1"].Status; got != order.Pending {
		t.Fatalf("gateway failure must leave the order pending, got %q", got)
	}
}

func TestProcessDeclined(t *testing.T) {
	gw := &fakeGateway{result: ChargeResult{TransactionID: "tx-d", Succeeded: false}}
	c, store := testCore(gw)

	_, err := c.Process(context.Background(), "u1", charge("o1", 150))
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway on decline, got %v", err)
	}

	if p := store.payments[0]; p.Status != Failed {
		t.Fatalf("expected failed payment, got %+v", p)
	}
	if got := store.orders["o1"].Status; got != order.Pending {
		t.Fatalf("declined charge must leave the order pending, got %q", got)
	}
}

func TestProcessRetryAfterFailure(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connection refused")}
	c, store := testCore(gw)

	if _, err := c.Process(context.Background(), "u1", charge("o1", 150)); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}

	gw.err = nil
	gw.result = ChargeResult{TransactionID: "tx-2", Succeeded: true}

	p, err := c.Process(context.Background(), "u1", charge("o1", 150))
	if err != nil {
		t.Fatalf("retry after gateway failure: %v", err)
	}
	if p.Status != Succeeded {
		t.Fatalf("expected retried payment to succeed, got %+v", p)
	}
	if len(store.payments) != 2 {
		t.Fatalf("expected failed + succeeded records, got %d", len(store.payments))
	}
}

func TestProcessDuplicateTransaction(t *testing.T) {
	gw := &fakeGateway{result: ChargeResult{TransactionID: "tx-same", Succeeded: true}}
	c, store := testCore(gw)

	if _, err := c.Process(context.Background(), "u1", charge("o1", 150)); err != nil {
		t.Fatalf("first capture: %v", err)
	}

	// The gateway hands back an already recorded transaction id for a
	// different order: the row must be rejected, not written twice.
	_, err := c.Process(context.Background(), "u1", charge("o2", 70))
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
	if len(store.payments) != 1 {
		t.Fatalf("expected exactly 1 payment row, got %d", len(store.payments))
	}
}

func TestProcessNonPendingOrder(t *testing.T) {
	gw := &fakeGateway{result: ChargeResult{TransactionID: "tx-1", Succeeded: true}}
	c, _ := testCore(gw)

	if _, err := c.Process(context.Background(), "u1", charge("o1", 150)); err != nil {
		t.Fatalf("first capture: %v", err)
	}

	_, err := c.Process(context.Background(), "u1", charge("o1", 150))
	if !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending on a paid order, got %v", err)
	}
	if len(gw.reqs) != 1 {
		t.Fatal("a non-pending order must not reach the gateway")
	}
}

func TestProcessChecks(t *testing.T) {
	gw := &fakeGateway{result: ChargeResult{TransactionID: "tx-1", Succeeded: true}}
	c, _ := testCore(gw)
	ctx := context.Background()

	if _, err := c.Process(ctx, "u1", charge("nope", 150)); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected order.ErrNotFound, got %v", err)
	}

	if _, err := c.Process(ctx, "intruder", charge("o1", 150)); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("foreign order must look absent, got %v", err)
	}

	if _, err := c.Process(ctx, "u1", charge("o1", 149)); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}

	pn := charge("o1", 150)
	pn.Provider = "cash"
	if _, err := c.Process(ctx, "u1", pn); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	if len(gw.reqs) != 0 {
		t.Fatal("validation failures must not reach the gateway")
	}
}
