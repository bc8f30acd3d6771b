package service

import (
	"context"

	"plumbstore/internal/model"
	"plumbstore/internal/repository"

	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// catalogService implements CatalogService.
type catalogService struct {
	catalogRepo repository.CatalogRepository
	logger      zerolog.Logger
}

// NewCatalogService creates a new catalogue service.
func NewCatalogService(catalogRepo repository.CatalogRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		catalogRepo: catalogRepo,
		logger:      logger.With().Str("service", "catalog").Logger(),
	}
}

// GetProduct retrieves a single product by ID.
func (s *catalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	if id <= 0 {
		return nil, model.ErrProductNotFound
	}

	product, err := s.catalogRepo.GetProduct(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, model.ErrProductNotFound, "failed to get product")
	}
	return product, nil
}

// ListProducts clamps pagination to sane bounds before querying.
func (s *catalogService) ListProducts(ctx context.Context, limit, offset int, categoryID *int64) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.catalogRepo.ListProducts(ctx, limit, offset, categoryID)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list products")
		return nil, model.PersistenceError("failed to list products", err)
	}

	s.logger.Debug().Int("count", len(products)).Int("limit", limit).Int("offset", offset).Msg("retrieved products")
	return products, nil
}

// ListCategories retrieves all categories.
func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list categories")
		return nil, model.PersistenceError("failed to list categories", err)
	}
	return categories, nil
}
