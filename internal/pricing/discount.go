package pricing

// voucherEffect splits the voucher discount by where it is attributed.
type voucherEffect struct {
	// itemLevel is already reflected in the items' FinalLineTotal.
	itemLevel Money
	// orderLevel is subtracted from the sum of line totals.
	orderLevel Money
}

func (v voucherEffect) total() Money { return v.itemLevel + v.orderLevel }

// applyVoucher computes the discount of an already validated voucher. Same-price vouchers rewrite the
// matching items in place; order-level vouchers leave items untouched.
func (e Engine) applyVoucher(v Voucher, items []DisplayItem, subTotalAfterPromotion Money) (voucherEffect, error) {
	switch kind := v.Kind.(type) {
	case FixedValue:
		amount := kind.Amount
		if amount < 0 {
			e.clamped("fixed_value_negative", amount, 0)
			amount = 0
		}
		applied := minMoney(amount, max(subTotalAfterPromotion, 0))
		if applied != amount {
			e.clamped("fixed_value", amount, applied)
		}
		return voucherEffect{orderLevel: applied}, nil
	case PercentOrder:
		raw := percentOf(subTotalAfterPromotion, kind.Percent, e.Rounding)
		applied := minMoney(raw, max(subTotalAfterPromotion, 0))
		if applied != raw {
			e.clamped("percent_order", raw, applied)
		}
		return voucherEffect{orderLevel: applied}, nil
	case SamePriceProduct:
		eligible := make(map[string]struct{}, len(v.EligibleProductRefs))
		for _, ref := range v.EligibleProductRefs {
			eligible[ref] = struct{}{}
		}
		var total Money
		for i := range items {
			it := &items[i]
			if _, ok := eligible[it.ProductRef]; !ok {
				continue
			}
			price := kind.Price
			if price < 0 {
				e.clamped("same_price_negative", price, 0)
				price = 0
			}
			if price > it.PriceAfterPromotion {
				e.clamped("same_price", price, it.PriceAfterPromotion)
				price = it.PriceAfterPromotion
			}
			it.FinalUnitPrice = price
			it.FinalLineTotal = price * Money(it.Quantity)
			total += (it.PriceAfterPromotion - price) * Money(it.Quantity)
		}
		return voucherEffect{itemLevel: total}, nil
	case nil:
		return voucherEffect{}, invalidInput("voucher %q has no type", v.Code)
	default:
		return voucherEffect{}, invalidInput("voucher %q has unsupported type %T", v.Code, kind)
	}
}
