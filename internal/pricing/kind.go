package pricing

import "github.com/shopspring/decimal"

// VoucherKind is the closed set of voucher types. Only the types declared in this file implement it;
// consumers switch over it and treat anything else as invalid input.
type VoucherKind interface {
	// Name returns the stable identifier used in storage and APIs.
	Name() string
	voucherKind()
}

// FixedValue takes a fixed amount off the order.
type FixedValue struct {
	Amount Money
}

// PercentOrder takes a percentage off the post-promotion subtotal.
type PercentOrder struct {
	Percent decimal.Decimal
}

// SamePriceProduct sets every eligible product to a single unit price.
type SamePriceProduct struct {
	Price Money
}

func (FixedValue) Name() string       { return "fixed_value" }
func (PercentOrder) Name() string     { return "percent_order" }
func (SamePriceProduct) Name() string { return "same_price_product" }

func (FixedValue) voucherKind()       {}
func (PercentOrder) voucherKind()     {}
func (SamePriceProduct) voucherKind() {}

// KindFromStorage rebuilds a VoucherKind from its stored name and raw value. Percent values are
// interpreted as whole percents; the other kinds read the value as minor units.
func KindFromStorage(name string, value decimal.Decimal) (VoucherKind, error) {
	switch name {
	case FixedValue{}.Name():
		return FixedValue{Amount: value.IntPart()}, nil
	case PercentOrder{}.Name():
		return PercentOrder{Percent: value}, nil
	case SamePriceProduct{}.Name():
		return SamePriceProduct{Price: value.IntPart()}, nil
	default:
		return nil, invalidInput("unknown voucher type %q", name)
	}
}
