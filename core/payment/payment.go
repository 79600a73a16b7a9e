package payment

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

var (
	ErrNotFound        = errors.New("payment not found")
	ErrOrderNotPending = errors.New("order is not pending")
	ErrAmountMismatch  = errors.New("amount does not match the order total")
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrDuplicateTransaction reports that the gateway transaction has
	// already been recorded: the transaction id is the idempotency key
	// and at most one payment row may carry it.
	ErrDuplicateTransaction = errors.New("transaction already processed")

	// ErrGateway reports that the charge was declined, timed out or
	// never reached the gateway. It is the only retryable failure: the
	// order stays pending and the client may submit the payment again.
	ErrGateway = errors.New("payment declined or gateway unreachable")
)

// Payment records the outcome of one gateway charge attempt. A row is
// written only after the gateway call returns, never speculatively.
type Payment struct {
	ID            string    `json:"id" db:"payment_id"`
	OrderID       string    `json:"orderId" db:"order_id"`
	UserID        string    `json:"userId" db:"user_id"`
	TransactionID *string   `json:"transactionId,omitempty" db:"transaction_id"`
	TotalAmount   int       `json:"totalAmount" db:"total_amount"`
	Provider      string    `json:"provider" db:"provider"`
	Currency      string    `json:"currency" db:"currency"`
	Successful    bool      `json:"successful" db:"successful"`
	Status        Status    `json:"status" db:"status"`
	PaymentDate   time.Time `json:"paymentDate" db:"payment_date"`
}

type PaymentNew struct {
	OrderID  string `json:"orderId" validate:"required"`
	Amount   int    `json:"amount" validate:"required,gt=0"`
	Provider string `json:"provider" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
}

type ChargeRequest struct {
	Amount      int
	Currency    string
	CustomerRef string
	Description string
}

type ChargeResult struct {
	TransactionID string
	Succeeded     bool
}

// Gateway is the narrow capability an external payment provider exposes to
// this core: a synchronous charge that may fail, time out or decline.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
