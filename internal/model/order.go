package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is an immutable priced snapshot of a cart. Only Status changes after creation.
type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         int64           `json:"userId" db:"user_id"`
	Address        string          `json:"address" db:"address"`
	Status         Status          `json:"status" db:"status"`
	Total          decimal.Decimal `json:"total" db:"total"`
	IdempotencyKey *string         `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
	Items          []OrderItem     `json:"items"`
}

// OrderItem is a line of an order with its price frozen at creation time.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"orderId" db:"order_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Position  int             `json:"-" db:"position"`
	Product   *OrderProduct   `json:"product,omitempty"`
}

// OrderProduct is the display data joined onto an order item.
type OrderProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SumItems returns the sum of line totals.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderRequest represents the request payload for creating an order.
// When Products is empty the user's cart is used.
type OrderRequest struct {
	Address        string             `json:"address"`
	Products       []OrderItemRequest `json:"products,omitempty"`
	TotalPrice     *decimal.Decimal   `json:"totalPrice,omitempty"`
	IdempotencyKey string             `json:"-"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// StatusUpdateRequest is the payload for status PATCH endpoints.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}
