package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

const (
	insertOrder = `
INSERT INTO orders (id, user_id, status, payment_method, currency, voucher_code,
    subtotal, promotion_discount, voucher_discount, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertOrderItem = `
INSERT INTO order_items (order_id, position, product_ref, variant_ref, quantity, original_unit_price,
    promotion_discount_total, price_after_promotion, final_unit_price, final_line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	orderColumns = `id, user_id, status, payment_method, currency, voucher_code,
    subtotal, promotion_discount, voucher_discount, total, created_at`

	getOrderForUser = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	listOrdersForUser = `SELECT ` + orderColumns + `
FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`

	countOrdersForUser = `SELECT count(*) FROM orders WHERE user_id = $1`

	listOrderItems = `
SELECT product_ref, variant_ref, quantity, original_unit_price, promotion_discount_total,
    price_after_promotion, final_unit_price, final_line_total
FROM order_items WHERE order_id = $1 ORDER BY position`
)

// Store persists orders in Postgres.
type Store struct {
	DB db.DBTX
}

// Insert writes the order header and its items. Callers run it inside the checkout transaction.
func (s Store) Insert(ctx context.Context, o Order) error {
	var voucherCode pgtype.Text
	if o.VoucherCode != "" {
		voucherCode = pgtype.Text{String: o.VoucherCode, Valid: true}
	}
	t := o.Totals
	if _, err := s.DB.Exec(ctx, insertOrder, o.ID, o.UserID, o.Status, o.PaymentMethod, o.Currency, voucherCode,
		t.SubTotalBeforeDiscount, t.PromotionDiscount, t.VoucherDiscount, t.FinalTotal, o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	for i, it := range o.Items {
		var variant pgtype.Text
		if it.VariantRef != "" {
			variant = pgtype.Text{String: it.VariantRef, Valid: true}
		}
		if _, err := s.DB.Exec(ctx, insertOrderItem, o.ID, i, it.ProductRef, variant, it.Quantity,
			it.OriginalUnitPrice, it.PromotionDiscountTotal, it.PriceAfterPromotion, it.FinalUnitPrice,
			it.FinalLineTotal); err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return nil
}

// GetForUser loads an order with its items.
func (s Store) GetForUser(ctx context.Context, id uuid.UUID, userID string) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, getOrderForUser, id, userID))
	if err != nil {
		return Order{}, err
	}
	rows, err := s.DB.Query(ctx, listOrderItems, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it      pricing.DisplayItem
			variant pgtype.Text
		)
		if err := rows.Scan(&it.ProductRef, &variant, &it.Quantity, &it.OriginalUnitPrice, &it.PromotionDiscountTotal,
			&it.PriceAfterPromotion, &it.FinalUnitPrice, &it.FinalLineTotal); err != nil {
			return Order{}, err
		}
		it.VariantRef = variant.String
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// ListForUser returns a page of the user's orders without items, newest first.
func (s Store) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	rows, err := s.DB.Query(ctx, listOrdersForUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountForUser returns how many orders the user placed.
func (s Store) CountForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.QueryRow(ctx, countOrdersForUser, userID).Scan(&n)
	return n, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o           Order
		voucherCode pgtype.Text
		t           = &o.Totals
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.Currency, &voucherCode,
		&t.SubTotalBeforeDiscount, &t.PromotionDiscount, &t.VoucherDiscount, &t.FinalTotal, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.VoucherCode = voucherCode.String
	return o, nil
}
