package model

import "time"

// CartLine is one product a user intends to buy. (UserID, ProductID) is unique.
type CartLine struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartLineView is a cart line joined with the live catalogue snapshot.
type CartLineView struct {
	CartLine
	Product ProductSummary `json:"product"`
}

// AddToCartRequest is the payload for POST /api/cart. A nil Quantity means the field was omitted.
type AddToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  *int  `json:"quantity,omitempty"`
}

// UpdateCartLineRequest is the payload for PATCH /api/cart/{id}.
type UpdateCartLineRequest struct {
	Quantity int `json:"quantity"`
}
