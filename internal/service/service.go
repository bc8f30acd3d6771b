package service

import (
	"context"
	"errors"
	"io"

	"plumbstore/internal/auth"
	"plumbstore/internal/events"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CatalogService exposes read-only catalogue lookups.
type CatalogService interface {
	// GetProduct retrieves a single product by ID.
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	// ListProducts retrieves products with pagination, optionally filtered by category.
	ListProducts(ctx context.Context, limit, offset int, categoryID *int64) ([]model.Product, error)

	// ListCategories retrieves all categories.
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// CartService manages the per-user cart ledger.
type CartService interface {
	// AddItem adds quantity of a product, merging with an existing line. created is true for a new line.
	AddItem(ctx context.Context, actor auth.Identity, req model.AddToCartRequest) (line *model.CartLine, created bool, err error)

	// RemoveItem deletes one of the caller's lines.
	RemoveItem(ctx context.Context, actor auth.Identity, lineID int64) error

	// SetQuantity overwrites a line's quantity. Values below 1 leave the line unchanged.
	SetQuantity(ctx context.Context, actor auth.Identity, lineID int64, quantity int) (*model.CartLine, error)

	// ListCart returns a user's lines with live product data.
	ListCart(ctx context.Context, actor auth.Identity, userID int64) ([]model.CartLineView, error)

	// GetTotal returns the live total of a user's cart.
	GetTotal(ctx context.Context, actor auth.Identity, userID int64) (decimal.Decimal, error)

	// ClearCart empties the caller's cart.
	ClearCart(ctx context.Context, actor auth.Identity) (int64, error)
}

// OrderService converts carts into orders and drives the order status machine.
type OrderService interface {
	// CreateOrder snapshots the cart (or an explicit product list) into a pending order and empties the cart.
	CreateOrder(ctx context.Context, actor auth.Identity, req *model.OrderRequest) (*model.Order, error)

	// GetOrder retrieves an order visible to the caller.
	GetOrder(ctx context.Context, actor auth.Identity, id uuid.UUID) (*model.Order, error)

	// ListOrders returns every order. Admin only.
	ListOrders(ctx context.Context, actor auth.Identity) ([]model.Order, error)

	// ListOrdersForUser returns a user's orders, newest first.
	ListOrdersForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.Order, error)

	// UpdateStatus moves an order to a new status. Admin only.
	UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*model.Order, error)
}

// ImageUpload is a photo attached to a service request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// PlumberRequestService manages on-site service requests.
type PlumberRequestService interface {
	// CreateRequest records a new pending request, storing the optional photo first.
	CreateRequest(ctx context.Context, actor auth.Identity, req *model.CreatePlumberRequest, image *ImageUpload) (*model.PlumberRequest, error)

	// UpdateStatus moves a request to a new status. Admin only.
	UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*model.PlumberRequest, error)

	// RateAndComment sets rating and/or comment on the caller's request.
	RateAndComment(ctx context.Context, actor auth.Identity, id uuid.UUID, req *model.RatingCommentRequest) (*model.PlumberRequest, error)

	// ListRequestsForUser returns a user's requests, newest first.
	ListRequestsForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.PlumberRequest, error)

	// ListAllRequests returns every request. Admin only.
	ListAllRequests(ctx context.Context, actor auth.Identity) ([]model.PlumberRequest, error)
}

// translateRepoError maps a repository error onto the domain taxonomy.
func translateRepoError(err error, notFound *model.DomainError, message string) error {
	if errors.Is(err, model.ErrNotFound) {
		return notFound
	}
	var de *model.DomainError
	if errors.As(err, &de) {
		return err
	}
	return model.PersistenceError(message, err)
}

// eventSink publishes domain events after commit. Failures are logged and counted, never returned.
type eventSink struct {
	publisher events.Publisher
	recorder  metrics.Recorder
	logger    zerolog.Logger
}

func (e eventSink) publish(ctx context.Context, routingKey string, event any) {
	if err := e.publisher.Publish(ctx, routingKey, event); err != nil {
		e.recorder.EventPublishFailed(routingKey)
		e.logger.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}
