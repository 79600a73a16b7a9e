package order

import (
	"context"
	"errors"
	"testing"

	"github.com/coursehub/coursehub/core/basket"
)

// fakeWorld backs both the basket slice and the order store so the
// active-to-completed transition and the order insert stay coupled, as
// they are in the real transactional store.
type fakeWorld struct {
	basket basket.Basket
	closed bool
	orders []Order
}

func (f *fakeWorld) ActiveWithItems(ctx context.Context, userID string) (basket.Basket, error) {
	if f.closed || f.basket.UserID != userID {
		return basket.Basket{}, basket.ErrNoActiveBasket
	}
	return f.basket, nil
}

func (f *fakeWorld) Checkout(ctx context.Context, ord Order) error {
	if f.closed {
		return basket.ErrNoActiveBasket
	}
	f.closed = true
	f.orders = append(f.orders, ord)
	return nil
}

func (f *fakeWorld) Fetch(ctx context.Context, orderID string) (Order, error) {
	for _, ord := range f.orders {
		if ord.ID == orderID {
			return ord, nil
		}
	}
	return Order{}, ErrNotFound
}

func (f *fakeWorld) FetchByUser(ctx context.Context, userID string) ([]Order, error) {
	var ords []Order
	for _, ord := range f.orders {
		if ord.UserID == userID {
			ords = append(ords, ord)
		}
	}
	return ords, nil
}

func world(items ...basket.Item) *fakeWorld {
	return &fakeWorld{
		basket: basket.Basket{
			ID:     "b1",
			UserID: "u1",
			Status: basket.Active,
			Items:  items,
		},
	}
}

func TestComplete(t *testing.T) {
	w := world(
		basket.Item{BasketID: "b1", CourseID: "c1", CourseTitle: "Go Basics", Price: 100},
		basket.Item{BasketID: "b1", CourseID: "c2", CourseTitle: "Advanced Go", Price: 50},
	)
	c := NewCore(w, w)

	ord, err := c.Complete(context.Background(), "u1")
	if err != nil {
		t.Fatalf("completing basket: %v", err)
	}

	if ord.TotalAmount != 150 {
		t.Fatalf("expected frozen total 150, got %d", ord.TotalAmount)
	}
	if ord.Status != Pending {
		t.Fatalf("expected pending order, got %q", ord.Status)
	}
	if ord.BasketID != "b1" {
		t.Fatalf("expected order bound to basket b1, got %q", ord.BasketID)
	}
	if len(ord.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(ord.Items))
	}
	for i, it := range ord.Items {
		if it.OrderID != ord.ID {
			t.Fatalf("item %d not bound to order", i)
		}
		if it.CourseID != w.basket.Items[i].CourseID || it.Price != w.basket.Items[i].Price {
			t.Fatalf("item %d does not snapshot the basket item", i)
		}
	}
	if !w.closed {
		t.Fatal("basket must be completed by checkout")
	}
}

func TestCompleteTwice(t *testing.T) {
	w := world(basket.Item{BasketID: "b1", CourseID: "c1", Price: 100})
	c := NewCore(w, w)

	if _, err := c.Complete(context.Background(), "u1"); err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	_, err := c.Complete(context.Background(), "u1")
	if !errors.Is(err, basket.ErrNoActiveBasket) {
		t.Fatalf("second checkout must observe no active basket, got %v", err)
	}
	if len(w.orders) != 1 {
		t.Fatalf("double submission created %d orders, expected exactly 1", len(w.orders))
	}
}

func TestCompleteLostRace(t *testing.T) {
	// The basket is still readable as active but a concurrent checkout
	// wins the checked-and-set close inside the store transaction.
	w := world(basket.Item{BasketID: "b1", CourseID: "c1", Price: 100})
	c := NewCore(w, &racingBaskets{w})

	w.closed = true
	_, err := c.Complete(context.Background(), "u1")
	if !errors.Is(err, basket.ErrNoActiveBasket) {
		t.Fatalf("losing the close race must fail cleanly, got %v", err)
	}
	if len(w.orders) != 0 {
		t.Fatalf("lost race created %d orders, expected none", len(w.orders))
	}
}

// racingBaskets keeps reporting the basket as active, as a stale read
// would, while the underlying world may already have closed it.
type racingBaskets struct {
	w *fakeWorld
}

func (r *racingBaskets) ActiveWithItems(ctx context.Context, userID string) (basket.Basket, error) {
	return r.w.basket, nil
}

func TestCompleteEmptyBasket(t *testing.T) {
	w := world()
	c := NewCore(w, w)

	_, err := c.Complete(context.Background(), "u1")
	if !errors.Is(err, ErrEmptyBasket) {
		t.Fatalf("expected ErrEmptyBasket, got %v", err)
	}
	if len(w.orders) != 0 {
		t.Fatal("empty checkout must not create an order")
	}
	if w.closed {
		t.Fatal("empty checkout must not close the basket")
	}
}

func TestCompleteNoBasket(t *testing.T) {
	w := &fakeWorld{closed: true}
	c := NewCore(w, w)

	_, err := c.Complete(context.Background(), "u1")
	if !errors.Is(err, basket.ErrNoActiveBasket) {
		t.Fatalf("expected ErrNoActiveBasket, got %v", err)
	}
}
