package services

import (
	"context"
	"time"

	"github.com/SigNoz/retail-order-engine/internal/cache"
	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/store"
	"github.com/rs/zerolog"
)

const (
	defaultProductLimit = 20
	maxProductLimit     = 100
)

// CatalogService serves product reads through the product cache
type CatalogService struct {
	uow    unitOfWork
	cache  cache.ProductCache
	logger zerolog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st store.Store, c cache.ProductCache, storeTimeout time.Duration, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		uow:    unitOfWork{store: st, timeout: storeTimeout},
		cache:  c,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// GetProduct returns a product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, Validation("product id is required")
	}
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}

	var p *models.Product
	err := s.uow.run(ctx, "product", func(tx store.Tx) error {
		var err error
		p, err = tx.Products().GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p)
	return p, nil
}

// ListProducts returns a page of products ordered by id
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	if offset < 0 {
		return nil, Validation("offset must not be negative")
	}

	var products []models.Product
	err := s.uow.run(ctx, "product", func(tx store.Tx) error {
		var err error
		products, err = tx.Products().ListProducts(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range products {
		s.cache.Set(ctx, &products[i])
	}
	return products, nil
}

// lookup resolves ids from the cache and loads the misses in one query.
// Repeated ids are resolved once. Products that do not exist are absent
// from the result.
func (s *CatalogService) lookup(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	found := make(map[int64]*models.Product, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	var misses []int64
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.cache.Get(ctx, id); ok {
			found[id] = p
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return found, nil
	}

	var loaded map[int64]*models.Product
	err := s.uow.run(ctx, "product", func(tx store.Tx) error {
		var err error
		loaded, err = tx.Products().GetProducts(ctx, misses)
		return err
	})
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		found[id] = p
		s.cache.Set(ctx, p)
	}
	return found, nil
}

// invalidate drops products whose counters changed in a committed transaction.
func (s *CatalogService) invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	s.cache.Invalidate(ctx, ids...)
	s.logger.Debug().Ints64("product_ids", ids).Msg("product cache invalidated")
}
