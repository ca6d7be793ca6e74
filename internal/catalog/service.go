package catalog

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/pricing"
)

// Service serves product reads through the Redis cache and admin writes.
type Service struct {
	store  Store
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}
}

// CreateInput is the admin payload for a new product.
type CreateInput struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Category    string           `json:"category"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       int              `json:"stock" validate:"gte=0"`
	Active      *bool            `json:"active"`
}

// GetProduct returns an active product, cached for the configured TTL.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	cached, ok, err := s.cache.Get(ctx, id)
	if ok {
		return cached, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache read failed")
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.Active {
		return Product{}, ErrProductNotFound
	}
	if err := s.cache.Put(ctx, *p); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("catalog cache write failed")
	}
	return *p, nil
}

// CreateProduct validates the input and derives the unit tax from the
// category tax table.
func (s *Service) CreateProduct(ctx context.Context, in CreateInput) (Product, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	if !in.Price.IsPositive() {
		return Product{}, common.ValidationError("", "price must be positive").WithDetails(map[string]string{"price": "gt"})
	}
	category := pricing.ParseCategory(in.Category)
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	p := &Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Price:       in.Price.Round(2),
		UnitTax:     pricing.UnitTax(*in.Price, category),
		Stock:       in.Stock,
		Active:      active,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	s.logger.Info().Str("product_id", p.ID).Str("category", string(category)).Msg("product created")
	return *p, nil
}

// Invalidate drops cached copies of the given products.
func (s *Service) Invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.Drop(ctx, ids...); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
