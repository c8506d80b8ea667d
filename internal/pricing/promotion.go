package pricing

import "math"

// validateItem rejects lines that indicate corrupted upstream data.
func validateItem(it OrderItem) error {
	if it.UnitPrice < 0 {
		return invalidInput("product %s has negative unit price %d", it.ProductRef, it.UnitPrice)
	}
	if it.Quantity <= 0 {
		return invalidInput("product %s has non-positive quantity %d", it.ProductRef, it.Quantity)
	}
	if it.UnitPrice > math.MaxInt64/Money(it.Quantity) {
		return invalidInput("product %s line total overflows: %d x %d", it.ProductRef, it.UnitPrice, it.Quantity)
	}
	return nil
}

// applyPromotion prices one item with its attached promotion. A missing promotion, a zero percent or a
// percent outside [0, 100] all resolve to "no promotion".
func (e Engine) applyPromotion(it OrderItem) DisplayItem {
	out := DisplayItem{
		ProductRef:          it.ProductRef,
		VariantRef:          it.VariantRef,
		OriginalUnitPrice:   it.UnitPrice,
		Quantity:            it.Quantity,
		PriceAfterPromotion: it.UnitPrice,
	}
	if p := it.Promotion; p != nil && !p.ValuePercent.IsZero() {
		if p.ValuePercent.IsNegative() || p.ValuePercent.GreaterThan(hundred) {
			e.logger().Warn().
				Str("product_ref", it.ProductRef).
				Str("promotion_ref", p.Ref).
				Str("percent", p.ValuePercent.String()).
				Msg("ignoring promotion with out-of-range percent")
		} else {
			perUnit := minMoney(percentOf(it.UnitPrice, p.ValuePercent, e.Rounding), it.UnitPrice)
			out.PriceAfterPromotion = it.UnitPrice - perUnit
			out.PromotionDiscountTotal = perUnit * Money(it.Quantity)
		}
	}
	out.FinalUnitPrice = out.PriceAfterPromotion
	out.FinalLineTotal = out.FinalUnitPrice * Money(it.Quantity)
	return out
}
