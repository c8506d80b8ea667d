package pricing

import (
	"math"

	"github.com/rs/zerolog"
)

// Observer receives notifications about silent adjustments and rejections. Implementations must be
// safe for concurrent use.
type Observer interface {
	Clamped(stage string, requested, applied Money)
	VoucherRejected(reason RejectionReason)
}

// Engine runs the pricing pipeline. The zero value is ready to use with floor rounding and no
// logging. An Engine holds no per-call state and may be shared across goroutines.
type Engine struct {
	Rounding Rounding
	Logger   *zerolog.Logger
	Observer Observer
}

// Result is the output of a pricing run.
type Result struct {
	Totals  CartTotals    `json:"totals"`
	Items   []DisplayItem `json:"items"`
	Voucher VoucherStatus `json:"voucher"`
}

// ComputeTotals prices items with their promotions and, when a voucher is supplied, validates it against
// the post-promotion items and applies it. A rejected voucher yields promotion-only totals and a
// rejected status. An error is returned only for invalid input or a failed totals cross-check.
func (e Engine) ComputeTotals(items []OrderItem, voucher *Voucher, inv Invocation) (Result, error) {
	display := make([]DisplayItem, 0, len(items))
	var subtotal Money
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return Result{}, err
		}
		line := it.UnitPrice * Money(it.Quantity)
		if subtotal > math.MaxInt64-line {
			return Result{}, invalidInput("order subtotal overflows at product %s", it.ProductRef)
		}
		subtotal += line
		display = append(display, e.applyPromotion(it))
	}

	status := VoucherStatus{State: VoucherNone}
	var effect voucherEffect
	if voucher != nil {
		if voucher.Kind == nil {
			return Result{}, invalidInput("voucher %q has no type", voucher.Code)
		}
		if !voucher.Applicability.Valid() {
			return Result{}, invalidInput("voucher %q has unknown applicability %q", voucher.Code, voucher.Applicability)
		}
		if reason, ok := ValidateVoucher(*voucher, display, inv); !ok {
			status = Rejected(voucher.Code, reason)
			e.logger().Info().
				Str("voucher_code", voucher.Code).
				Str("reason", string(reason)).
				Msg("voucher rejected")
			if e.Observer != nil {
				e.Observer.VoucherRejected(reason)
			}
		} else {
			var subAfterPromotion Money
			for _, it := range display {
				subAfterPromotion += it.PriceAfterPromotion * Money(it.Quantity)
			}
			var err error
			effect, err = e.applyVoucher(*voucher, display, subAfterPromotion)
			if err != nil {
				return Result{}, err
			}
			status = VoucherStatus{State: VoucherApplied, Code: voucher.Code}
		}
	}

	totals, err := e.composeTotals(display, effect)
	if err != nil {
		return Result{}, err
	}
	return Result{Totals: totals, Items: display, Voucher: status}, nil
}

// ComputeTotals runs the pipeline with a default Engine.
func ComputeTotals(items []OrderItem, voucher *Voucher, inv Invocation) (Result, error) {
	return Engine{}.ComputeTotals(items, voucher, inv)
}

func (e Engine) logger() *zerolog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func (e Engine) clamped(stage string, requested, applied Money) {
	e.logger().Debug().
		Str("stage", stage).
		Int64("requested", requested).
		Int64("applied", applied).
		Msg("discount clamped")
	if e.Observer != nil {
		e.Observer.Clamped(stage, requested, applied)
	}
}
