package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

type stubQueries struct {
	mu       sync.Mutex
	records  map[string]Record
	usages   []Usage
	locked   []string
	countErr error
}

func newStub(recs ...Record) *stubQueries {
	s := &stubQueries{records: map[string]Record{}}
	for _, r := range recs {
		s.records[r.Voucher.Code] = r
	}
	return s
}

func (s *stubQueries) GetVoucherByCode(_ context.Context, code string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[code]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *stubQueries) GetVoucherByCodeForUpdate(ctx context.Context, code string) (Record, error) {
	s.mu.Lock()
	s.locked = append(s.locked, code)
	s.mu.Unlock()
	return s.GetVoucherByCode(ctx, code)
}

func (s *stubQueries) CreateVoucher(_ context.Context, d Definition) (Record, error) {
	kind, err := pricing.KindFromStorage(d.Kind, d.Value)
	if err != nil {
		return Record{}, err
	}
	rec := Record{ID: uuid.New(), Voucher: pricing.Voucher{
		Code: d.Code, Kind: kind, MinOrderValue: d.MinOrderValue, Applicability: d.Applicability,
		EligibleProductRefs: d.EligibleProductRefs, IsActive: d.IsActive, MaxUsage: d.MaxUsage,
		RemainingUsage: d.MaxUsage, NumberOfUsagePerUser: d.NumberOfUsagePerUser,
	}}
	s.mu.Lock()
	s.records[d.Code] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *stubQueries) UpdateVoucher(ctx context.Context, d Definition) (Record, error) {
	if _, err := s.GetVoucherByCode(ctx, d.Code); err != nil {
		return Record{}, err
	}
	return s.CreateVoucher(ctx, d)
}

func (s *stubQueries) CountVoucherUsageByUser(_ context.Context, voucherID uuid.UUID, userID string) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.usages {
		if u.VoucherID == voucherID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *stubQueries) ConsumeVoucherUsage(_ context.Context, voucherID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, rec := range s.records {
		if rec.ID != voucherID {
			continue
		}
		if rec.Voucher.RemainingUsage <= 0 {
			return false, nil
		}
		rec.Voucher.RemainingUsage--
		s.records[code] = rec
		return true, nil
	}
	return false, nil
}

func (s *stubQueries) GetVoucherUsageByOrder(_ context.Context, voucherID, orderID uuid.UUID) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.usages {
		if u.VoucherID == voucherID && u.OrderID == orderID {
			return u, nil
		}
	}
	return Usage{}, ErrNotFound
}

func (s *stubQueries) InsertVoucherUsage(_ context.Context, u Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usages = append(s.usages, u)
	return nil
}

func lunchVoucher(remaining int) Record {
	return Record{ID: uuid.New(), Voucher: pricing.Voucher{
		Code:                "LUNCH10",
		Kind:                pricing.PercentOrder{Percent: decimal.NewFromInt(10)},
		Applicability:       pricing.AtLeastOneRequired,
		EligibleProductRefs: []string{"pho-bo"},
		IsActive:            true,
		MaxUsage:            remaining,
		RemainingUsage:      remaining,
	}}
}

func TestLoadCountsUserUsage(t *testing.T) {
	rec := lunchVoucher(5)
	q := newStub(rec)
	q.usages = []Usage{
		{VoucherID: rec.ID, OrderID: uuid.New(), UserID: "user-1"},
		{VoucherID: rec.ID, OrderID: uuid.New(), UserID: "user-1"},
		{VoucherID: rec.ID, OrderID: uuid.New(), UserID: "user-2"},
	}
	svc := &Service{Q: q}

	loaded, err := svc.Load(context.Background(), " LUNCH10 ", "user-1", false)
	require.NoError(t, err)
	require.Equal(t, rec.ID, loaded.ID)
	require.Equal(t, 2, loaded.UserUsage)
	require.Empty(t, q.locked)

	_, err = svc.Load(context.Background(), "LUNCH10", "", true)
	require.NoError(t, err)
	require.Equal(t, []string{"LUNCH10"}, q.locked)
}

func TestLoadUnknownCode(t *testing.T) {
	svc := &Service{Q: newStub()}
	_, err := svc.Load(context.Background(), "NOPE", "user-1", false)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Load(context.Background(), "  ", "user-1", false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadPropagatesCountError(t *testing.T) {
	q := newStub(lunchVoucher(1))
	q.countErr = errors.New("db down")
	_, err := (&Service{Q: q}).Load(context.Background(), "LUNCH10", "user-1", false)
	require.EqualError(t, err, "db down")
}

func TestRedeemIsIdempotentPerOrder(t *testing.T) {
	rec := lunchVoucher(2)
	q := newStub(rec)
	svc := &Service{Q: q}
	loaded, err := svc.Load(context.Background(), "LUNCH10", "user-1", true)
	require.NoError(t, err)

	orderID := uuid.New()
	require.NoError(t, svc.Redeem(context.Background(), loaded, orderID, "user-1", 5_000))
	require.NoError(t, svc.Redeem(context.Background(), loaded, orderID, "user-1", 5_000))
	require.Len(t, q.usages, 1)
	require.Equal(t, 1, q.records["LUNCH10"].Voucher.RemainingUsage)
}

func TestRedeemExhausted(t *testing.T) {
	q := newStub(lunchVoucher(1))
	svc := &Service{Q: q}
	loaded, err := svc.Load(context.Background(), "LUNCH10", "user-1", true)
	require.NoError(t, err)

	require.NoError(t, svc.Redeem(context.Background(), loaded, uuid.New(), "user-1", 1))
	err = svc.Redeem(context.Background(), loaded, uuid.New(), "user-2", 1)
	require.ErrorIs(t, err, ErrUsageExhausted)
	require.Len(t, q.usages, 1)
	require.Equal(t, 0, q.records["LUNCH10"].Voucher.RemainingUsage)
}

func TestRedeemClampsNegativeAmount(t *testing.T) {
	q := newStub(lunchVoucher(1))
	svc := &Service{Q: q}
	loaded, err := svc.Load(context.Background(), "LUNCH10", "", false)
	require.NoError(t, err)
	require.NoError(t, svc.Redeem(context.Background(), loaded, uuid.New(), "user-1", -10))
	require.Equal(t, int64(0), q.usages[0].Amount)
}

func TestValidateDefinition(t *testing.T) {
	base := func() Definition {
		return Definition{
			Code:                "SAME29",
			Kind:                "same_price_product",
			Value:               decimal.NewFromInt(29_000),
			EligibleProductRefs: []string{"tra-da"},
		}
	}

	d := base()
	require.NoError(t, Validate(&d))
	require.Equal(t, pricing.AtLeastOneRequired, d.Applicability)

	cases := map[string]func(*Definition){
		"missing code":       func(d *Definition) { d.Code = " " },
		"unknown kind":       func(d *Definition) { d.Kind = "bogo" },
		"fractional amount":  func(d *Definition) { d.Value = decimal.RequireFromString("10.5") },
		"negative amount":    func(d *Definition) { d.Value = decimal.NewFromInt(-1) },
		"percent over 100":   func(d *Definition) { d.Kind, d.Value = "percent_order", decimal.NewFromInt(101) },
		"percent zero":       func(d *Definition) { d.Kind, d.Value = "percent_order", decimal.Zero },
		"empty scope":        func(d *Definition) { d.EligibleProductRefs = nil },
		"bad applicability":  func(d *Definition) { d.Applicability = "some" },
		"negative max usage": func(d *Definition) { d.MaxUsage = -1 },
		"restricted no group": func(d *Definition) {
			d.IsUserGroupRestricted = true
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := base()
			mutate(&d)
			require.ErrorIs(t, Validate(&d), ErrInvalidDefinition)
		})
	}
}
