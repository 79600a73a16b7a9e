package order

import (
	"errors"
	"time"
)

type Status string

const (
	Pending Status = "pending"
	Paid    Status = "paid"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrEmptyBasket = errors.New("basket has no items")
)

// Order is immutable once created except for its status: the line items
// and the total are frozen copies of the basket at checkout time.
type Order struct {
	ID          string    `json:"id" db:"order_id"`
	UserID      string    `json:"userId" db:"user_id"`
	BasketID    string    `json:"basketId" db:"basket_id"`
	TotalAmount int       `json:"totalAmount" db:"total_amount"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Items       []Item    `json:"items" db:"-"`
}

type Item struct {
	OrderID     string    `json:"-" db:"order_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	CourseTitle string    `json:"courseTitle" db:"course_title"`
	Price       int       `json:"price" db:"price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
