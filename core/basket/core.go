package basket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursehub/coursehub/core/course"
	"github.com/coursehub/coursehub/database"
	"github.com/coursehub/coursehub/validate"
)

// Storer is the repository surface the basket manager needs.
type Storer interface {
	Create(ctx context.Context, b Basket) error
	Fetch(ctx context.Context, basketID string) (Basket, error)
	FetchActive(ctx context.Context, userID string) (Basket, error)
	FetchItems(ctx context.Context, basketID string) ([]Item, error)
	AddItem(ctx context.Context, it Item) error
	DeleteItem(ctx context.Context, basketID string, courseID string) error
	DeleteItems(ctx context.Context, basketID string) error
}

// Catalog is the slice of the catalog subsystem this core consumes: the
// course lookup that sources the title and price snapshots.
type Catalog interface {
	Fetch(ctx context.Context, courseID string) (course.Course, error)
}

type Core struct {
	store   Storer
	catalog Catalog
	now     func() time.Time
}

func NewCore(store Storer, catalog Catalog) *Core {
	return &Core{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Active returns the user's active basket with items and total. A user
// without an active basket gets an empty one: that is a normal state,
// not an error.
func (c *Core) Active(ctx context.Context, userID string) (Basket, error) {
	b, err := c.ActiveWithItems(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveBasket) {
			return Basket{UserID: userID, Status: Active, Items: []Item{}}, nil
		}
		return Basket{}, err
	}

	return b, nil
}

// ActiveWithItems returns the user's active basket or ErrNoActiveBasket.
func (c *Core) ActiveWithItems(ctx context.Context, userID string) (Basket, error) {
	b, err := c.store.FetchActive(ctx, userID)
	if err != nil {
		return Basket{}, err
	}

	return c.withItems(ctx, b)
}

// Get looks a basket up by id regardless of its status and of who owns it.
func (c *Core) Get(ctx context.Context, basketID string) (Basket, error) {
	b, err := c.store.Fetch(ctx, basketID)
	if err != nil {
		return Basket{}, err
	}

	return c.withItems(ctx, b)
}

// AddCourse puts the course into the user's active basket, lazily creating
// the basket on first use. The course title and price are snapshot at this
// moment. Adding a course already in the basket is a no-op.
func (c *Core) AddCourse(ctx context.Context, userID string, courseID string) (Basket, error) {
	crs, err := c.catalog.Fetch(ctx, courseID)
	if err != nil {
		return Basket{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	b, err := c.activeOrNew(ctx, userID)
	if err != nil {
		return Basket{}, err
	}

	it := Item{
		BasketID:    b.ID,
		CourseID:    crs.ID,
		CourseTitle: crs.Name,
		Price:       crs.Price,
		CreatedAt:   c.now(),
	}

	if err := c.store.AddItem(ctx, it); err != nil {
		return Basket{}, err
	}

	return c.withItems(ctx, b)
}

// RemoveCourse takes the course out of the user's active basket. A course
// that is not in the basket reports ErrItemNotFound.
func (c *Core) RemoveCourse(ctx context.Context, userID string, courseID string) (Basket, error) {
	b, err := c.store.FetchActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveBasket) {
			return Basket{}, ErrItemNotFound
		}
		return Basket{}, err
	}

	if err := c.store.DeleteItem(ctx, b.ID, courseID); err != nil {
		return Basket{}, err
	}

	return c.withItems(ctx, b)
}

// Clear removes every item from the user's active basket. The basket stays
// active. Clearing when no active basket exists is a no-op.
func (c *Core) Clear(ctx context.Context, userID string) error {
	b, err := c.store.FetchActive(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveBasket) {
			return nil
		}
		return err
	}

	return c.store.DeleteItems(ctx, b.ID)
}

func (c *Core) activeOrNew(ctx context.Context, userID string) (Basket, error) {
	b, err := c.store.FetchActive(ctx, userID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNoActiveBasket) {
		return Basket{}, err
	}

	now := c.now()
	b = Basket{
		ID:        validate.GenerateID(),
		UserID:    userID,
		Status:    Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.store.Create(ctx, b); err != nil {
		// A concurrent request may have created the active basket
		// first: the partial unique index rejects the second insert.
		if database.IsUniqueViolation(err) {
			return c.store.FetchActive(ctx, userID)
		}
		return Basket{}, err
	}

	return b, nil
}

func (c *Core) withItems(ctx context.Context, b Basket) (Basket, error) {
	its, err := c.store.FetchItems(ctx, b.ID)
	if err != nil {
		return Basket{}, err
	}

	b.Items = its
	b.TotalPrice = b.Total()
	return b, nil
}
