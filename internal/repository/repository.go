package repository

import (
	"context"

	"plumbstore/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CatalogRepository reads products and categories. The service never writes the catalogue.
type CatalogRepository interface {
	// GetProduct retrieves a single product. Returns model.ErrNotFound when absent.
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	// GetProductsByIDs returns the products that exist among ids, keyed by id.
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)

	// ListProducts retrieves products with pagination, optionally filtered by category.
	ListProducts(ctx context.Context, limit, offset int, categoryID *int64) ([]model.Product, error)

	// ListCategories retrieves every category ordered by name.
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// CartRepository defines data access for cart lines.
type CartRepository interface {
	// AddItem inserts a line or increments the existing one in a single statement.
	// created reports whether a new line was inserted.
	AddItem(ctx context.Context, userID, productID int64, quantity int) (line *model.CartLine, created bool, err error)

	// GetLine returns the line when it exists and belongs to userID.
	GetLine(ctx context.Context, userID, lineID int64) (*model.CartLine, error)

	// SetQuantity overwrites the quantity of a line owned by userID.
	SetQuantity(ctx context.Context, userID, lineID int64, quantity int) (*model.CartLine, error)

	// DeleteLine removes a line owned by userID.
	DeleteLine(ctx context.Context, userID, lineID int64) error

	// ListByUser returns the user's lines joined with the live catalogue, oldest first.
	ListByUser(ctx context.Context, userID int64) ([]model.CartLineView, error)

	// Total returns the sum of live price times quantity over the user's lines.
	Total(ctx context.Context, userID int64) (decimal.Decimal, error)

	// Clear deletes every line of the user and returns how many were removed.
	Clear(ctx context.Context, userID int64) (int64, error)

	// LockForCheckout locks the user's lines within tx and returns them priced at the current catalogue price.
	LockForCheckout(ctx context.Context, tx pgx.Tx, userID int64) ([]model.OrderItem, error)

	// ClearTx deletes every line of the user within tx.
	ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// LockUser serialises order creation for one user until tx ends.
	LockUser(ctx context.Context, tx pgx.Tx, userID int64) error

	// FindByIdempotencyKey returns the user's order created with key, or model.ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, tx pgx.Tx, userID int64, key string) (*model.Order, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items. Returns model.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListAll returns every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)

	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// GetStatusForUpdate locks the order row and returns its status and owner.
	GetStatusForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Status, int64, error)

	// UpdateStatus writes a new status within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status) error
}

// PlumberRequestRepository defines data access for service requests.
type PlumberRequestRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new request.
	Create(ctx context.Context, req *model.PlumberRequest) error

	// GetByID retrieves a request. Returns model.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.PlumberRequest, error)

	// ListByUser returns the user's requests, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.PlumberRequest, error)

	// ListAll returns every request, newest first.
	ListAll(ctx context.Context) ([]model.PlumberRequest, error)

	// GetStatusForUpdate locks the request row and returns its status and owner.
	GetStatusForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Status, int64, error)

	// UpdateStatus writes a new status within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status) error

	// UpdateRatingComment writes whichever of rating and comment is non-nil, leaving the other unchanged.
	// Only a row owned by userID (and completed, when requireCompleted) is written.
	UpdateRatingComment(ctx context.Context, id uuid.UUID, userID int64, requireCompleted bool, rating *int, comment *string) (*model.PlumberRequest, error)
}
