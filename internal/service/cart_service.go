package service

import (
	"context"

	"plumbstore/internal/auth"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"
	"plumbstore/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// cartService implements CartService.
type cartService struct {
	cartRepo    repository.CartRepository
	catalogRepo repository.CatalogRepository
	recorder    metrics.Recorder
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	catalogRepo repository.CatalogRepository,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		catalogRepo: catalogRepo,
		recorder:    recorder,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

// AddItem defaults an omitted quantity to 1; an explicit quantity must be positive. No stock check is made.
func (s *cartService) AddItem(ctx context.Context, actor auth.Identity, req model.AddToCartRequest) (*model.CartLine, bool, error) {
	if req.ProductID <= 0 {
		return nil, false, model.ErrProductRequired
	}

	quantity := 1
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, false, model.ErrInvalidQuantity
		}
		quantity = *req.Quantity
	}

	if _, err := s.catalogRepo.GetProduct(ctx, req.ProductID); err != nil {
		return nil, false, translateRepoError(err, model.ErrProductNotFound, "failed to add item to cart")
	}

	line, created, err := s.cartRepo.AddItem(ctx, actor.UserID, req.ProductID, quantity)
	if err != nil {
		return nil, false, translateRepoError(err, model.ErrProductNotFound, "failed to add item to cart")
	}

	s.recorder.CartItemAdded()
	s.logger.Debug().
		Int64("user_id", actor.UserID).
		Int64("product_id", req.ProductID).
		Int("quantity", line.Quantity).
		Bool("created", created).
		Msg("cart item added")

	return line, created, nil
}

// RemoveItem deletes a line. Lines of other users are reported as not found.
func (s *cartService) RemoveItem(ctx context.Context, actor auth.Identity, lineID int64) error {
	if err := s.cartRepo.DeleteLine(ctx, actor.UserID, lineID); err != nil {
		return translateRepoError(err, model.ErrCartLineNotFound, "failed to remove cart item")
	}
	return nil
}

// SetQuantity ignores values below 1 and returns the line as stored.
func (s *cartService) SetQuantity(ctx context.Context, actor auth.Identity, lineID int64, quantity int) (*model.CartLine, error) {
	if quantity < 1 {
		line, err := s.cartRepo.GetLine(ctx, actor.UserID, lineID)
		if err != nil {
			return nil, translateRepoError(err, model.ErrCartLineNotFound, "failed to update cart item")
		}
		s.logger.Debug().Int64("cart_line_id", lineID).Int("quantity", quantity).Msg("ignoring quantity below 1")
		return line, nil
	}

	line, err := s.cartRepo.SetQuantity(ctx, actor.UserID, lineID, quantity)
	if err != nil {
		return nil, translateRepoError(err, model.ErrCartLineNotFound, "failed to update cart item")
	}
	return line, nil
}

// ListCart returns the cart of userID if the caller may see it.
func (s *cartService) ListCart(ctx context.Context, actor auth.Identity, userID int64) ([]model.CartLineView, error) {
	if !actor.CanAccessUser(userID) {
		return nil, model.ErrNotOwner
	}

	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.PersistenceError("failed to list cart", err)
	}
	return lines, nil
}

// GetTotal sums live prices; it is not the price an order will freeze.
func (s *cartService) GetTotal(ctx context.Context, actor auth.Identity, userID int64) (decimal.Decimal, error) {
	if !actor.CanAccessUser(userID) {
		return decimal.Zero, model.ErrNotOwner
	}

	total, err := s.cartRepo.Total(ctx, userID)
	if err != nil {
		return decimal.Zero, model.PersistenceError("failed to compute cart total", err)
	}
	return total, nil
}

// ClearCart empties the caller's cart.
func (s *cartService) ClearCart(ctx context.Context, actor auth.Identity) (int64, error) {
	removed, err := s.cartRepo.Clear(ctx, actor.UserID)
	if err != nil {
		return 0, model.PersistenceError("failed to clear cart", err)
	}
	s.logger.Info().Int64("user_id", actor.UserID).Int64("removed", removed).Msg("cart cleared")
	return removed, nil
}
