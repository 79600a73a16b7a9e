package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coursehub/coursehub/core/order"
	"github.com/coursehub/coursehub/database"
	"github.com/jmoiron/sqlx"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const qInsert = `
	INSERT INTO payments
		(payment_id, order_id, user_id, transaction_id, total_amount, provider, currency, successful, status, payment_date)
	VALUES
		(:payment_id, :order_id, :user_id, :transaction_id, :total_amount, :provider, :currency, :successful, :status, :payment_date)`

// Create persists the outcome of a failed charge. The order is left
// untouched, so it stays pending and chargeable.
func (s *Store) Create(ctx context.Context, p Payment) error {
	if _, err := sqlx.NamedExecContext(ctx, s.db, qInsert, p); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("inserting payment: %w", err)
	}

	return nil
}

// CreateCaptured persists a successful charge and marks its order paid in
// one transaction. The unique index on the transaction id makes a second
// capture of the same gateway transaction roll back entirely.
func (s *Store) CreateCaptured(ctx context.Context, p Payment) error {
	return database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		if _, err := sqlx.NamedExecContext(ctx, tx, qInsert, p); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateTransaction
			}
			return fmt.Errorf("inserting payment: %w", err)
		}

		if err := order.MarkPaid(ctx, tx, p.OrderID, p.PaymentDate); err != nil {
			return err
		}

		return nil
	})
}

func (s *Store) Fetch(ctx context.Context, paymentID string) (Payment, error) {
	const q = `SELECT * FROM payments WHERE payment_id = $1`

	var p Payment
	if err := sqlx.GetContext(ctx, s.db, &p, q, paymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, fmt.Errorf("selecting payment[%s]: %w", paymentID, err)
	}

	return p, nil
}

func (s *Store) FetchByUser(ctx context.Context, userID string) ([]Payment, error) {
	const q = `SELECT * FROM payments WHERE user_id = $1 ORDER BY payment_date DESC`

	ps := []Payment{}
	if err := sqlx.SelectContext(ctx, s.db, &ps, q, userID); err != nil {
		return nil, fmt.Errorf("selecting payments of user[%s]: %w", userID, err)
	}

	return ps, nil
}
