package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

const getPricingProduct = `
SELECT p.ref, v.ref, COALESCE(v.price, p.price), pr.ref, pr.value_percent
FROM products p
LEFT JOIN product_variants v ON v.product_ref = p.ref AND v.ref = $2
LEFT JOIN LATERAL (
    SELECT ref, value_percent
    FROM promotions
    WHERE product_ref = p.ref
      AND is_active
      AND (starts_at IS NULL OR starts_at <= $3)
      AND (ends_at IS NULL OR ends_at >= $3)
    ORDER BY value_percent DESC, ref
    LIMIT 1
) pr ON TRUE
WHERE p.ref = $1 AND p.is_active`

// Store reads pricing data from Postgres.
type Store struct {
	DB db.DBTX
}

// GetPricingProduct returns the unit price of a product or variant and the promotion active at the
// given instant. When several promotions overlap the largest one wins.
func (s Store) GetPricingProduct(ctx context.Context, productRef, variantRef string, at time.Time) (PricingProduct, error) {
	var (
		ref        string
		variant    pgtype.Text
		price      int64
		promoRef   pgtype.Text
		promoValue pgtype.Numeric
	)
	err := s.DB.QueryRow(ctx, getPricingProduct, productRef, variantRef, at).
		Scan(&ref, &variant, &price, &promoRef, &promoValue)
	if errors.Is(err, pgx.ErrNoRows) {
		return PricingProduct{}, ErrNotFound
	}
	if err != nil {
		return PricingProduct{}, err
	}
	if variantRef != "" && !variant.Valid {
		return PricingProduct{}, ErrNotFound
	}
	out := PricingProduct{ProductRef: ref, VariantRef: variantRef, UnitPrice: price}
	if percent, ok := db.Decimal(promoValue); ok && promoRef.Valid {
		out.Promotion = &pricing.Promotion{Ref: promoRef.String, ValuePercent: percent}
	}
	return out, nil
}
