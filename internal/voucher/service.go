package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

var (
	// ErrNotFound is returned when a voucher code or usage row does not exist.
	ErrNotFound = errors.New("voucher: not found")
	// ErrUsageExhausted is returned by Redeem when the global usage counter reached zero between
	// evaluation and redemption.
	ErrUsageExhausted = errors.New("voucher: usage exhausted")
	// ErrInvalidDefinition wraps validation failures on voucher definitions.
	ErrInvalidDefinition = errors.New("voucher: invalid definition")
)

// Record is a stored voucher with its identifier.
type Record struct {
	ID      uuid.UUID
	Voucher pricing.Voucher
}

// Usage is one redemption in the usage ledger.
type Usage struct {
	VoucherID uuid.UUID
	OrderID   uuid.UUID
	UserID    string
	Amount    int64
	CreatedAt time.Time
}

// Definition is the writable part of a voucher. Kind and Value are stored raw and turned into a
// pricing.VoucherKind on read.
type Definition struct {
	Code                   string
	Kind                   string
	Value                  decimal.Decimal
	MinOrderValue          int64
	Applicability          pricing.ApplicabilityRule
	EligibleProductRefs    []string
	IsActive               bool
	StartDate              time.Time
	EndDate                time.Time
	MaxUsage               int
	NumberOfUsagePerUser   int
	IsPrivate              bool
	IsVerificationIdentity bool
	IsUserGroupRestricted  bool
	UserGroups             []string
	AllowedPaymentMethods  []string
}

// Querier captures the database methods required by the voucher service.
type Querier interface {
	GetVoucherByCode(ctx context.Context, code string) (Record, error)
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (Record, error)
	CreateVoucher(ctx context.Context, d Definition) (Record, error)
	UpdateVoucher(ctx context.Context, d Definition) (Record, error)
	CountVoucherUsageByUser(ctx context.Context, voucherID uuid.UUID, userID string) (int, error)
	ConsumeVoucherUsage(ctx context.Context, voucherID uuid.UUID) (bool, error)
	GetVoucherUsageByOrder(ctx context.Context, voucherID, orderID uuid.UUID) (Usage, error)
	InsertVoucherUsage(ctx context.Context, u Usage) error
}

// Loaded is a voucher ready for evaluation together with the caller's usage count.
type Loaded struct {
	ID        uuid.UUID
	Voucher   pricing.Voucher
	UserUsage int
}

// Service loads vouchers for pricing and settles their usage.
type Service struct {
	Q Querier
}

// Load fetches a voucher by code and counts how often userID already redeemed it. With forUpdate the
// voucher row stays locked for the rest of the transaction.
func (s *Service) Load(ctx context.Context, code, userID string, forUpdate bool) (Loaded, error) {
	if s == nil || s.Q == nil {
		return Loaded{}, errors.New("voucher service not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Loaded{}, ErrNotFound
	}
	get := s.Q.GetVoucherByCode
	if forUpdate {
		get = s.Q.GetVoucherByCodeForUpdate
	}
	rec, err := get(ctx, code)
	if err != nil {
		return Loaded{}, err
	}
	out := Loaded{ID: rec.ID, Voucher: rec.Voucher}
	if userID = strings.TrimSpace(userID); userID != "" {
		used, err := s.Q.CountVoucherUsageByUser(ctx, rec.ID, userID)
		if err != nil {
			return Loaded{}, err
		}
		out.UserUsage = used
	}
	return out, nil
}

// Redeem records that orderID used the voucher and consumes one global usage. Redeeming the same
// order twice is a no-op.
func (s *Service) Redeem(ctx context.Context, l Loaded, orderID uuid.UUID, userID string, amount int64) error {
	if s == nil || s.Q == nil {
		return errors.New("voucher service not configured")
	}
	if amount < 0 {
		amount = 0
	}
	_, err := s.Q.GetVoucherUsageByOrder(ctx, l.ID, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	ok, err := s.Q.ConsumeVoucherUsage(ctx, l.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsageExhausted
	}
	return s.Q.InsertVoucherUsage(ctx, Usage{VoucherID: l.ID, OrderID: orderID, UserID: userID, Amount: amount})
}

// Create stores a new voucher with its remaining usage set to MaxUsage.
func (s *Service) Create(ctx context.Context, d Definition) (Record, error) {
	if err := Validate(&d); err != nil {
		return Record{}, err
	}
	return s.Q.CreateVoucher(ctx, d)
}

// Update replaces a voucher definition. Remaining usage moves by the change in MaxUsage.
func (s *Service) Update(ctx context.Context, d Definition) (Record, error) {
	if err := Validate(&d); err != nil {
		return Record{}, err
	}
	return s.Q.UpdateVoucher(ctx, d)
}

// Validate normalises d and checks the rules the database cannot express.
func Validate(d *Definition) error {
	d.Code = strings.TrimSpace(d.Code)
	if d.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidDefinition)
	}
	kind, err := pricing.KindFromStorage(d.Kind, d.Value)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, err.Error())
	}
	switch kind.(type) {
	case pricing.PercentOrder:
		if d.Value.LessThanOrEqual(decimal.Zero) || d.Value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percent must be within (0, 100]", ErrInvalidDefinition)
		}
	default:
		if d.Value.IsNegative() || !d.Value.Equal(d.Value.Truncate(0)) {
			return fmt.Errorf("%w: value must be a non-negative whole amount", ErrInvalidDefinition)
		}
	}
	if d.Applicability == "" {
		d.Applicability = pricing.AtLeastOneRequired
	}
	if d.Applicability != pricing.AtLeastOneRequired && d.Applicability != pricing.AllRequired {
		return fmt.Errorf("%w: unknown applicability %q", ErrInvalidDefinition, d.Applicability)
	}
	if len(d.EligibleProductRefs) == 0 {
		return fmt.Errorf("%w: at least one eligible product is required", ErrInvalidDefinition)
	}
	if !d.StartDate.IsZero() && !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidDefinition)
	}
	if d.MaxUsage < 0 || d.NumberOfUsagePerUser < 0 || d.MinOrderValue < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidDefinition)
	}
	if d.IsUserGroupRestricted && len(d.UserGroups) == 0 {
		return fmt.Errorf("%w: restricted vouchers need at least one user group", ErrInvalidDefinition)
	}
	return nil
}
