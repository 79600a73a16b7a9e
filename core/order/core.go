package order

import (
	"context"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/core/basket"
	"github.com/coursehub/coursehub/validate"
)

// Storer is the repository surface of the order aggregate.
type Storer interface {
	Checkout(ctx context.Context, ord Order) error
	Fetch(ctx context.Context, orderID string) (Order, error)
	FetchByUser(ctx context.Context, userID string) ([]Order, error)
}

// Baskets is the slice of the basket manager the checkout consumes.
type Baskets interface {
	ActiveWithItems(ctx context.Context, userID string) (basket.Basket, error)
}

type Core struct {
	store   Storer
	baskets Baskets
	now     func() time.Time
}

func NewCore(store Storer, baskets Baskets) *Core {
	return &Core{
		store:   store,
		baskets: baskets,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Complete converts the user's active basket into a pending order, freezing
// every item's price snapshot and the total, and closes the basket. The
// conversion is atomic, and because the basket stops being active on the
// first success, a second submission of the same checkout observes
// basket.ErrNoActiveBasket instead of creating a second order.
func (c *Core) Complete(ctx context.Context, userID string) (Order, error) {
	b, err := c.baskets.ActiveWithItems(ctx, userID)
	if err != nil {
		return Order{}, err
	}

	if len(b.Items) == 0 {
		return Order{}, ErrEmptyBasket
	}

	now := c.now()
	ord := Order{
		ID:        validate.GenerateID(),
		UserID:    userID,
		BasketID:  b.ID,
		Status:    Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, it := range b.Items {
		ord.Items = append(ord.Items, Item{
			OrderID:     ord.ID,
			CourseID:    it.CourseID,
			CourseTitle: it.CourseTitle,
			Price:       it.Price,
			CreatedAt:   now,
		})
		ord.TotalAmount += it.Price
	}

	if err := c.store.Checkout(ctx, ord); err != nil {
		return Order{}, fmt.Errorf("checking out basket[%s]: %w", b.ID, err)
	}

	return ord, nil
}

func (c *Core) Get(ctx context.Context, orderID string) (Order, error) {
	return c.store.Fetch(ctx, orderID)
}

func (c *Core) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return c.store.FetchByUser(ctx, userID)
}
