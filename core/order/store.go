package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/database"
	"github.com/jmoiron/sqlx"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Checkout persists the order, its line items and the active-to-completed
// transition of the originating basket in one transaction. Either all of
// it commits or none of it does: no order without its closed basket and no
// closed basket without its order. A basket already closed by a concurrent
// checkout rolls everything back with basket.ErrNoActiveBasket.
func (s *Store) Checkout(ctx context.Context, ord Order) error {
	const qOrder = `
	INSERT INTO orders
		(order_id, user_id, basket_id, total_amount, status, created_at, updated_at)
	VALUES
		(:order_id, :user_id, :basket_id, :total_amount, :status, :created_at, :updated_at)`

	const qItem = `
	INSERT INTO order_items
		(order_id, course_id, course_title, price, created_at)
	VALUES
		(:order_id, :course_id, :course_title, :price, :created_at)`

	return database.Transaction(s.db, func(tx sqlx.ExtContext) error {
		if err := basket.Close(ctx, tx, ord.BasketID, ord.CreatedAt); err != nil {
			return err
		}

		if _, err := sqlx.NamedExecContext(ctx, tx, qOrder, ord); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		for _, it := range ord.Items {
			if _, err := sqlx.NamedExecContext(ctx, tx, qItem, it); err != nil {
				return fmt.Errorf("inserting order item: %w", err)
			}
		}

		return nil
	})
}

func (s *Store) Fetch(ctx context.Context, orderID string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := sqlx.GetContext(ctx, s.db, &ord, q, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s]: %w", orderID, err)
	}

	its, err := s.fetchItems(ctx, orderID)
	if err != nil {
		return Order{}, err
	}

	ord.Items = its
	return ord, nil
}

func (s *Store) FetchByUser(ctx context.Context, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	ords := []Order{}
	if err := sqlx.SelectContext(ctx, s.db, &ords, q, userID); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}

	for i := range ords {
		its, err := s.fetchItems(ctx, ords[i].ID)
		if err != nil {
			return nil, err
		}
		ords[i].Items = its
	}

	return ords, nil
}

func (s *Store) fetchItems(ctx context.Context, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`

	its := []Item{}
	if err := sqlx.SelectContext(ctx, s.db, &its, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, err)
	}

	return its, nil
}

// MarkPaid transitions the order from pending to paid. Callers run it
// inside their transaction. An order that is not pending anymore reports
// ErrNotFound, which storage-wise means the row vanished mid-flight.
func MarkPaid(ctx context.Context, tx sqlx.ExtContext, orderID string, now time.Time) error {
	const q = `UPDATE orders SET status = 'paid', updated_at = $2 WHERE order_id = $1 AND status = 'pending'`

	res, err := tx.ExecContext(ctx, q, orderID, now)
	if err != nil {
		return fmt.Errorf("marking order[%s] paid: %w", orderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking paid order[%s]: %w", orderID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
