package pricing

import (
	"slices"
	"time"
)

// ValidateVoucher runs the eligibility checks in order and returns the first failing reason. An empty
// reason means the voucher is valid for the given items. Items are the post-promotion display lines.
// An unknown applicability never satisfies the product scope; ComputeTotals rejects it as invalid input
// before eligibility runs.
func ValidateVoucher(v Voucher, items []DisplayItem, inv Invocation) (RejectionReason, bool) {
	if !v.IsActive || !withinWindow(inv.Now, v.StartDate, v.EndDate) {
		return ReasonExpiredOrInactive, false
	}
	if v.RemainingUsage <= 0 {
		return ReasonUsageExhausted, false
	}
	if v.NumberOfUsagePerUser > 0 && inv.UserUsageCount >= v.NumberOfUsagePerUser {
		return ReasonUsageExhausted, false
	}
	if v.IsVerificationIdentity && !inv.IsIdentityVerified {
		return ReasonIdentityVerificationRequired, false
	}
	if v.IsUserGroupRestricted && !intersects(v.UserGroups, inv.UserGroups) {
		return ReasonUserGroupNotEligible, false
	}
	if len(v.AllowedPaymentMethods) > 0 && !slices.Contains(v.AllowedPaymentMethods, inv.PaymentMethod) {
		return ReasonPaymentMethodNotEligible, false
	}
	var subtotal Money
	for _, it := range items {
		subtotal += it.OriginalUnitPrice * Money(it.Quantity)
	}
	if subtotal < v.MinOrderValue {
		return ReasonMinOrderValueNotMet, false
	}
	if !scopeSatisfied(v, items) {
		return ReasonProductScopeNotEligible, false
	}
	return "", true
}

// withinWindow treats a zero bound as open-ended. Both bounds are inclusive.
func withinWindow(now, start, end time.Time) bool {
	if !start.IsZero() && now.Before(start) {
		return false
	}
	if !end.IsZero() && now.After(end) {
		return false
	}
	return true
}

func scopeSatisfied(v Voucher, items []DisplayItem) bool {
	present := make(map[string]struct{}, len(items))
	for _, it := range items {
		present[it.ProductRef] = struct{}{}
	}
	switch v.Applicability {
	case AllRequired:
		if len(v.EligibleProductRefs) == 0 {
			return false
		}
		for _, ref := range v.EligibleProductRefs {
			if _, ok := present[ref]; !ok {
				return false
			}
		}
		return true
	case AtLeastOneRequired:
		for _, ref := range v.EligibleProductRefs {
			if _, ok := present[ref]; ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
