package pricing

import "fmt"

// composeTotals sums the display items and derives the final total twice: once from the line totals
// and once by subtracting the discounts from the subtotal. The derivations must agree exactly since all
// amounts are whole minor units.
func (e Engine) composeTotals(items []DisplayItem, effect voucherEffect) (CartTotals, error) {
	var totals CartTotals
	var lines Money
	for _, it := range items {
		qty := Money(it.Quantity)
		totals.SubTotalBeforeDiscount += it.OriginalUnitPrice * qty
		totals.PromotionDiscount += it.PromotionDiscountTotal
		lines += it.FinalLineTotal
	}
	totals.VoucherDiscount = effect.total()

	fromLines := lines - effect.orderLevel
	fromOrder := totals.SubTotalBeforeDiscount - totals.PromotionDiscount - totals.VoucherDiscount
	if fromLines != fromOrder {
		return CartTotals{}, fmt.Errorf("%w: lines=%d order=%d", ErrTotalsMismatch, fromLines, fromOrder)
	}
	if fromOrder < 0 {
		e.clamped("final_total", fromOrder, 0)
		fromOrder = 0
	}
	totals.FinalTotal = fromOrder
	return totals, nil
}
