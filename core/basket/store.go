package basket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, b Basket) error {
	const q = `
	INSERT INTO baskets
		(basket_id, user_id, status, created_at, updated_at)
	VALUES
		(:basket_id, :user_id, :status, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, b); err != nil {
		return fmt.Errorf("inserting basket: %w", err)
	}

	return nil
}

func (s *Store) Fetch(ctx context.Context, basketID string) (Basket, error) {
	const q = `SELECT * FROM baskets WHERE basket_id = $1`

	var b Basket
	if err := sqlx.GetContext(ctx, s.db, &b, q, basketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Basket{}, ErrNotFound
		}
		return Basket{}, fmt.Errorf("selecting basket[%s]: %w", basketID, err)
	}

	return b, nil
}

func (s *Store) FetchActive(ctx context.Context, userID string) (Basket, error) {
	const q = `SELECT * FROM baskets WHERE user_id = $1 AND status = 'active'`

	var b Basket
	if err := sqlx.GetContext(ctx, s.db, &b, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Basket{}, ErrNoActiveBasket
		}
		return Basket{}, fmt.Errorf("selecting active basket of user[%s]: %w", userID, err)
	}

	return b, nil
}

func (s *Store) FetchItems(ctx context.Context, basketID string) ([]Item, error) {
	const q = `SELECT * FROM basket_items WHERE basket_id = $1 ORDER BY created_at`

	its := []Item{}
	if err := sqlx.SelectContext(ctx, s.db, &its, q, basketID); err != nil {
		return nil, fmt.Errorf("selecting items of basket[%s]: %w", basketID, err)
	}

	return its, nil
}

// AddItem inserts the passed item unless the course is already in the
// basket. Re-adding is a no-op, so a basket never holds duplicate lines.
func (s *Store) AddItem(ctx context.Context, it Item) error {
	const q = `
	INSERT INTO basket_items
		(basket_id, course_id, course_title, price, created_at)
	VALUES
		(:basket_id, :course_id, :course_title, :price, :created_at)
	ON CONFLICT (basket_id, course_id) DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, s.db, q, it); err != nil {
		return fmt.Errorf("inserting basket item: %w", err)
	}

	return nil
}

func (s *Store) DeleteItem(ctx context.Context, basketID string, courseID string) error {
	const q = `DELETE FROM basket_items WHERE basket_id = $1 AND course_id = $2`

	res, err := s.db.ExecContext(ctx, q, basketID, courseID)
	if err != nil {
		return fmt.Errorf("deleting basket item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted basket item: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}

	return nil
}

func (s *Store) DeleteItems(ctx context.Context, basketID string) error {
	const q = `DELETE FROM basket_items WHERE basket_id = $1`

	if _, err := s.db.ExecContext(ctx, q, basketID); err != nil {
		return fmt.Errorf("deleting items of basket[%s]: %w", basketID, err)
	}

	return nil
}

// Close transitions the basket from active to completed. It is a
// checked-and-set: callers run it inside their transaction and a basket
// that is no longer active reports ErrNoActiveBasket, so two concurrent
// checkouts cannot both close the same basket.
func Close(ctx context.Context, tx sqlx.ExtContext, basketID string, now time.Time) error {
	const q = `UPDATE baskets SET status = 'completed', updated_at = $2 WHERE basket_id = $1 AND status = 'active'`

	res, err := tx.ExecContext(ctx, q, basketID, now)
	if err != nil {
		return fmt.Errorf("closing basket[%s]: %w", basketID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking closed basket[%s]: %w", basketID, err)
	}
	if n == 0 {
		return ErrNoActiveBasket
	}

	return nil
}
