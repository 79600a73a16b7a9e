package basket

import (
	"errors"
	"time"
)

type Status string

const (
	Active    Status = "active"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

var (
	ErrNotFound       = errors.New("basket not found")
	ErrNoActiveBasket = errors.New("no active basket")
	ErrItemNotFound   = errors.New("course not in basket")
)

type Basket struct {
	ID         string    `json:"id" db:"basket_id"`
	UserID     string    `json:"userId" db:"user_id"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
	Items      []Item    `json:"items" db:"-"`
	TotalPrice int       `json:"totalPrice" db:"-"`
}

// Item snapshots the course title and price at add time. The snapshot is
// immutable: a later change of the live course price does not touch it.
type Item struct {
	BasketID    string    `json:"-" db:"basket_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	CourseTitle string    `json:"courseTitle" db:"course_title"`
	Price       int       `json:"price" db:"price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required"`
}

// Total is the sum of the current items' price snapshots. It is always
// derived, never stored, so it cannot drift from the items.
func (b Basket) Total() int {
	var tot int
	for _, it := range b.Items {
		tot += it.Price
	}
	return tot
}
