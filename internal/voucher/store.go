package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-resto/internal/db"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

const voucherColumns = `id, code, kind, value, min_order_value, applicability, eligible_product_refs, is_active,
    start_date, end_date, max_usage, remaining_usage, number_of_usage_per_user, is_private,
    is_verification_identity, is_user_group_restricted, user_groups, allowed_payment_methods`

const (
	getVoucherByCode          = `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	getVoucherByCodeForUpdate = getVoucherByCode + ` FOR UPDATE`

	createVoucher = `
INSERT INTO vouchers (code, kind, value, min_order_value, applicability, eligible_product_refs, is_active,
    start_date, end_date, max_usage, remaining_usage, number_of_usage_per_user, is_private,
    is_verification_identity, is_user_group_restricted, user_groups, allowed_payment_methods)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + voucherColumns

	updateVoucher = `
UPDATE vouchers SET
    kind = $2, value = $3, min_order_value = $4, applicability = $5, eligible_product_refs = $6,
    is_active = $7, start_date = $8, end_date = $9,
    remaining_usage = GREATEST(remaining_usage + ($10 - max_usage), 0), max_usage = $10,
    number_of_usage_per_user = $11, is_private = $12, is_verification_identity = $13,
    is_user_group_restricted = $14, user_groups = $15, allowed_payment_methods = $16
WHERE code = $1
RETURNING ` + voucherColumns

	countVoucherUsageByUser = `SELECT count(*) FROM voucher_usages WHERE voucher_id = $1 AND user_id = $2`

	consumeVoucherUsage = `UPDATE vouchers SET remaining_usage = remaining_usage - 1 WHERE id = $1 AND remaining_usage > 0`

	getVoucherUsageByOrder = `
SELECT voucher_id, order_id, user_id, amount, created_at
FROM voucher_usages WHERE voucher_id = $1 AND order_id = $2`

	insertVoucherUsage = `
INSERT INTO voucher_usages (voucher_id, order_id, user_id, amount)
VALUES ($1, $2, $3, $4)`
)

// Store persists vouchers and their usage ledger in Postgres.
type Store struct {
	DB db.DBTX
}

func (s Store) GetVoucherByCode(ctx context.Context, code string) (Record, error) {
	return scanVoucher(s.DB.QueryRow(ctx, getVoucherByCode, code))
}

// GetVoucherByCodeForUpdate locks the voucher row until the surrounding transaction ends.
func (s Store) GetVoucherByCodeForUpdate(ctx context.Context, code string) (Record, error) {
	return scanVoucher(s.DB.QueryRow(ctx, getVoucherByCodeForUpdate, code))
}

func (s Store) CreateVoucher(ctx context.Context, d Definition) (Record, error) {
	return scanVoucher(s.DB.QueryRow(ctx, createVoucher, definitionArgs(d)...))
}

func (s Store) UpdateVoucher(ctx context.Context, d Definition) (Record, error) {
	return scanVoucher(s.DB.QueryRow(ctx, updateVoucher, definitionArgs(d)...))
}

func (s Store) CountVoucherUsageByUser(ctx context.Context, voucherID uuid.UUID, userID string) (int, error) {
	var n int64
	if err := s.DB.QueryRow(ctx, countVoucherUsageByUser, voucherID, userID).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ConsumeVoucherUsage decrements the remaining usage counter. It reports false when the counter was
// already exhausted.
func (s Store) ConsumeVoucherUsage(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	tag, err := s.DB.Exec(ctx, consumeVoucherUsage, voucherID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s Store) GetVoucherUsageByOrder(ctx context.Context, voucherID, orderID uuid.UUID) (Usage, error) {
	var u Usage
	err := s.DB.QueryRow(ctx, getVoucherUsageByOrder, voucherID, orderID).
		Scan(&u.VoucherID, &u.OrderID, &u.UserID, &u.Amount, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usage{}, ErrNotFound
	}
	return u, err
}

func (s Store) InsertVoucherUsage(ctx context.Context, u Usage) error {
	_, err := s.DB.Exec(ctx, insertVoucherUsage, u.VoucherID, u.OrderID, u.UserID, u.Amount)
	return err
}

func definitionArgs(d Definition) []any {
	return []any{
		d.Code, d.Kind, db.Numeric(d.Value), d.MinOrderValue, string(d.Applicability), nonNil(d.EligibleProductRefs),
		d.IsActive, nullableTime(d.StartDate), nullableTime(d.EndDate), d.MaxUsage, d.NumberOfUsagePerUser,
		d.IsPrivate, d.IsVerificationIdentity, d.IsUserGroupRestricted, nonNil(d.UserGroups),
		nonNil(d.AllowedPaymentMethods),
	}
}

func scanVoucher(row pgx.Row) (Record, error) {
	var (
		rec           Record
		kind          string
		value         pgtype.Numeric
		applicability string
		start, end    pgtype.Timestamptz
		v             = &rec.Voucher
	)
	err := row.Scan(
		&rec.ID, &v.Code, &kind, &value, &v.MinOrderValue, &applicability, &v.EligibleProductRefs, &v.IsActive,
		&start, &end, &v.MaxUsage, &v.RemainingUsage, &v.NumberOfUsagePerUser, &v.IsPrivate,
		&v.IsVerificationIdentity, &v.IsUserGroupRestricted, &v.UserGroups, &v.AllowedPaymentMethods,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	amount, ok := db.Decimal(value)
	if !ok {
		return Record{}, fmt.Errorf("voucher %s: value is not a finite number", v.Code)
	}
	if v.Kind, err = pricing.KindFromStorage(kind, amount); err != nil {
		return Record{}, err
	}
	if v.Applicability, err = pricing.ApplicabilityFromStorage(applicability); err != nil {
		return Record{}, err
	}
	if start.Valid {
		v.StartDate = start.Time
	}
	if end.Valid {
		v.EndDate = end.Time
	}
	return rec, nil
}

func nullableTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
