package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

// ErrNotFound is returned when a product or variant is unknown or inactive.
var ErrNotFound = errors.New("catalog: product not found")

// PricingProduct is the pricing view of one product or variant.
type PricingProduct struct {
	ProductRef string             `json:"productRef"`
	VariantRef string             `json:"variantRef,omitempty"`
	UnitPrice  pricing.Money      `json:"unitPrice"`
	Promotion  *pricing.Promotion `json:"promotion,omitempty"`
}

// Line is a requested cart line before pricing data is attached.
type Line struct {
	ProductRef string
	VariantRef string
	Quantity   int
}

// Querier is the storage contract the service depends on.
type Querier interface {
	GetPricingProduct(ctx context.Context, productRef, variantRef string, at time.Time) (PricingProduct, error)
}

// Service resolves cart lines into priced order items.
type Service struct {
	queries Querier
	cache   *Cache
	now     func() time.Time
}

// ServiceConfig groups Service dependencies. Cache is optional; the checkout path leaves it unset so
// prices are always read from the transaction.
type ServiceConfig struct {
	Queries Querier
	Cache   *Cache
	Now     func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, now: now}, nil
}

// Product returns pricing data for one product or variant.
func (s *Service) Product(ctx context.Context, productRef, variantRef string) (PricingProduct, error) {
	productRef = strings.TrimSpace(productRef)
	variantRef = strings.TrimSpace(variantRef)
	if productRef == "" {
		return PricingProduct{}, ErrNotFound
	}

	key := PriceKey(productRef, variantRef)
	var cached PricingProduct
	hit, err := s.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}
	if hit {
		return cached, nil
	}

	product, err := s.queries.GetPricingProduct(ctx, productRef, variantRef, s.now())
	if err != nil {
		return PricingProduct{}, err
	}
	if err := s.cache.SetJSON(ctx, key, product); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return product, nil
}

// Resolve attaches unit prices and active promotions to lines, preserving their order.
func (s *Service) Resolve(ctx context.Context, lines []Line) ([]pricing.OrderItem, error) {
	items := make([]pricing.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := s.Product(ctx, line.ProductRef, line.VariantRef)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, describe(line))
			}
			return nil, err
		}
		items = append(items, pricing.OrderItem{
			ProductRef: product.ProductRef,
			VariantRef: product.VariantRef,
			UnitPrice:  product.UnitPrice,
			Quantity:   line.Quantity,
			Promotion:  product.Promotion,
		})
	}
	return items, nil
}

func describe(line Line) string {
	if line.VariantRef == "" {
		return line.ProductRef
	}
	return line.ProductRef + "/" + line.VariantRef
}
