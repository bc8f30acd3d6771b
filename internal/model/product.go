package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry. The service only reads products.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	CategoryID  int64           `json:"categoryId" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	Image       string          `json:"image" db:"image"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// Category groups products for browsing.
type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Image       string `json:"image" db:"image"`
	Icon        string `json:"icon" db:"icon"`
}

// ProductSummary is the subset of product data joined onto cart lines for display.
type ProductSummary struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}
