package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"plumbstore/internal/auth"
	"plumbstore/internal/events"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"
	"plumbstore/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderOptions holds the order lifecycle switches from configuration.
type OrderOptions struct {
	Policy               model.TransitionPolicy
	AllowExternalPricing bool
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	machine     statusMachine
	opts        OrderOptions
	events      eventSink
	recorder    metrics.Recorder
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	publisher events.Publisher,
	recorder metrics.Recorder,
	opts OrderOptions,
	logger zerolog.Logger,
) OrderService {
	logger = logger.With().Str("service", "order").Logger()
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		machine:     newStatusMachine(opts.Policy),
		opts:        opts,
		events:      eventSink{publisher: publisher, recorder: recorder, logger: logger},
		recorder:    recorder,
		logger:      logger,
	}
}

// CreateOrder converts the caller's cart, or an explicit product list, into a pending order.
// Everything from the idempotency lookup to clearing the cart runs in one transaction.
func (s *orderService) CreateOrder(ctx context.Context, actor auth.Identity, req *model.OrderRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.ErrAddressRequired
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, model.ErrAddressRequired
	}

	// Direct items are priced before BEGIN so the catalogue read holds no locks.
	var direct []model.OrderItem
	if len(req.Products) > 0 {
		var err error
		if direct, err = s.priceDirectItems(ctx, req); err != nil {
			return nil, err
		}
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, model.PersistenceError("failed to create order", err)
	}

	orderID := uuid.New()
	committed := false
	defer func() {
		if !committed {
			s.rollback(ctx, tx, orderID, actor.UserID)
		}
	}()

	if err := s.orderRepo.LockUser(ctx, tx, actor.UserID); err != nil {
		return nil, model.PersistenceError("failed to create order", err)
	}

	var key *string
	if k := strings.TrimSpace(req.IdempotencyKey); k != "" {
		key = &k
		existing, err := s.orderRepo.FindByIdempotencyKey(ctx, tx, actor.UserID, k)
		switch {
		case err == nil:
			if err := tx.Commit(ctx); err != nil {
				return nil, model.PersistenceError("failed to create order", err)
			}
			committed = true
			s.recorder.OrderReplayed()
			s.logger.Info().
				Str("order_id", existing.ID.String()).
				Int64("user_id", actor.UserID).
				Msg("replayed order for idempotency key")
			return existing, nil
		case !errors.Is(err, model.ErrNotFound):
			return nil, model.PersistenceError("failed to create order", err)
		}
	}

	source := "direct"
	items := direct
	if items == nil {
		source = "cart"
		items, err = s.cartRepo.LockForCheckout(ctx, tx, actor.UserID)
		if err != nil {
			return nil, model.PersistenceError("failed to create order", err)
		}
		if len(items) == 0 {
			return nil, model.ErrCartEmpty
		}
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:             orderID,
		UserID:         actor.UserID,
		Address:        address,
		Status:         model.StatusPending,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
		items[i].Position = i
	}
	order.Items = items
	order.Total = model.SumItems(items)

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to create order")
		return nil, model.PersistenceError("failed to create order", err)
	}

	if err := s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return nil, model.PersistenceError("failed to create order items", err)
	}

	if err := s.cartRepo.ClearTx(ctx, tx, actor.UserID); err != nil {
		return nil, model.PersistenceError("failed to clear cart", err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to commit transaction")
		return nil, model.PersistenceError("failed to create order", err)
	}
	committed = true

	s.recorder.OrderCreated(source)
	s.events.publish(ctx, events.OrderCreatedRoutingKey, events.NewOrderCreated(order))

	s.logger.Info().
		Str("order_id", orderID.String()).
		Int64("user_id", actor.UserID).
		Str("source", source).
		Int("item_count", len(items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order created successfully")

	return order, nil
}

// priceDirectItems validates an explicit product list and prices it from the catalogue,
// or by equal division of totalPrice when external pricing is enabled.
func (s *orderService) priceDirectItems(ctx context.Context, req *model.OrderRequest) ([]model.OrderItem, error) {
	ids := make([]int64, 0, len(req.Products))
	units := 0
	for i, item := range req.Products {
		if item.ProductID <= 0 {
			return nil, model.ErrProductRequired
		}
		if item.Quantity < 1 {
			s.logger.Warn().
				Int("item_index", i).
				Int64("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return nil, model.ErrInvalidQuantity
		}
		ids = append(ids, item.ProductID)
		units += item.Quantity
	}

	if req.TotalPrice != nil && req.TotalPrice.IsNegative() {
		return nil, model.ErrInvalidTotalPrice
	}

	products, err := s.catalogRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, model.PersistenceError("failed to load products", err)
	}

	var equalShare *decimal.Decimal
	if s.opts.AllowExternalPricing && req.TotalPrice != nil {
		share := req.TotalPrice.Div(decimal.NewFromInt(int64(units))).Round(2)
		equalShare = &share
	}

	items := make([]model.OrderItem, 0, len(req.Products))
	for _, item := range req.Products {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, model.ErrProductNotFound
		}
		unitPrice := product.Price
		if equalShare != nil {
			unitPrice = *equalShare
		}
		items = append(items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			Product:   &model.OrderProduct{ID: product.ID, Name: product.Name, Image: product.Image},
		})
	}
	return items, nil
}

// rollback aborts tx. A failed rollback is logged with the order and user it belonged to.
func (s *orderService) rollback(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, userID int64) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Int64("user_id", userID).
			Msg("failed to rollback transaction")
	}
}

// GetOrder retrieves an order visible to the caller.
func (s *orderService) GetOrder(ctx context.Context, actor auth.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrOrderNotFound, "failed to get order")
	}
	if !actor.CanAccessUser(order.UserID) {
		return nil, model.ErrNotOwner
	}
	return order, nil
}

// ListOrders returns every order. Admin only.
func (s *orderService) ListOrders(ctx context.Context, actor auth.Identity) ([]model.Order, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		return nil, model.PersistenceError("failed to list orders", err)
	}
	return orders, nil
}

// ListOrdersForUser returns a user's orders, newest first.
func (s *orderService) ListOrdersForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.Order, error) {
	if !actor.CanAccessUser(userID) {
		return nil, model.ErrNotOwner
	}
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.PersistenceError("failed to list orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along the status machine. The row stays locked between read and write.
func (s *orderService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, raw string) (*model.Order, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	next, err := s.machine.parse(raw)
	if err != nil {
		return nil, err
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, model.PersistenceError("failed to update order status", err)
	}
	committed := false
	defer func() {
		if !committed {
			s.rollback(ctx, tx, id, actor.UserID)
		}
	}()

	current, ownerID, err := s.orderRepo.GetStatusForUpdate(ctx, tx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrOrderNotFound, "failed to update order status")
	}

	changed, err := s.machine.check(current, next)
	if err != nil {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(current)).
			Str("to", string(next)).
			Msg("rejected status transition")
		return nil, err
	}

	if changed {
		if err := s.orderRepo.UpdateStatus(ctx, tx, id, next); err != nil {
			return nil, translateRepoError(err, model.ErrOrderNotFound, "failed to update order status")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, model.PersistenceError("failed to update order status", err)
	}
	committed = true

	if changed {
		s.recorder.StatusChanged("order", string(next))
		s.events.publish(ctx, events.OrderStatusChangedRoutingKey, events.StatusChanged{
			ID: id, UserID: ownerID, From: current, To: next,
		})
		s.logger.Info().
			Str("order_id", id.String()).
			Str("from", string(current)).
			Str("to", string(next)).
			Msg("order status updated")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrOrderNotFound, "failed to get order")
	}
	return order, nil
}
