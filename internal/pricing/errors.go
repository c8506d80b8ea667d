package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates upstream data the engine must never receive, such as a negative price,
	// a non-positive quantity or a voucher without a known type. The pricing call is aborted.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrTotalsMismatch is returned when the line-level and order-level derivations of the final total disagree.
	ErrTotalsMismatch = errors.New("pricing: totals cross-check failed")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RejectionReason explains why a voucher was not applied.
type RejectionReason string

const (
	ReasonExpiredOrInactive            RejectionReason = "ExpiredOrInactive"
	ReasonUsageExhausted               RejectionReason = "UsageExhausted"
	ReasonIdentityVerificationRequired RejectionReason = "IdentityVerificationRequired"
	ReasonUserGroupNotEligible         RejectionReason = "UserGroupNotEligible"
	ReasonPaymentMethodNotEligible     RejectionReason = "PaymentMethodNotEligible"
	ReasonMinOrderValueNotMet          RejectionReason = "MinOrderValueNotMet"
	ReasonProductScopeNotEligible      RejectionReason = "ProductScopeNotEligible"
	// ReasonNotFound is reported by callers when the voucher code does not resolve; the engine never produces it.
	ReasonNotFound RejectionReason = "NotFound"
)

// Message returns the user-facing explanation for the reason.
func (r RejectionReason) Message() string {
	switch r {
	case ReasonExpiredOrInactive:
		return "This voucher is not active at the moment."
	case ReasonUsageExhausted:
		return "This voucher has reached its usage limit."
	case ReasonIdentityVerificationRequired:
		return "Verify your identity to use this voucher."
	case ReasonUserGroupNotEligible:
		return "This voucher is not available for your account."
	case ReasonPaymentMethodNotEligible:
		return "This voucher cannot be used with the selected payment method."
	case ReasonMinOrderValueNotMet:
		return "Your order does not reach the minimum value for this voucher."
	case ReasonProductScopeNotEligible:
		return "Your order does not contain the products this voucher applies to."
	case ReasonNotFound:
		return "Voucher code not found."
	default:
		return "This voucher cannot be applied."
	}
}

// VoucherState summarises the outcome of voucher evaluation.
type VoucherState string

const (
	VoucherNone     VoucherState = "none"
	VoucherApplied  VoucherState = "applied"
	VoucherRejected VoucherState = "rejected"
)

// VoucherStatus is returned alongside the totals so callers can show why a voucher did not apply
// without blocking checkout.
type VoucherStatus struct {
	State  VoucherState    `json:"state"`
	Code   string          `json:"code,omitempty"`
	Reason RejectionReason `json:"reason,omitempty"`
}

// Applied reports whether the voucher contributed to the totals.
func (s VoucherStatus) Applied() bool { return s.State == VoucherApplied }

// Rejected builds a rejected status for the given code.
func Rejected(code string, reason RejectionReason) VoucherStatus {
	return VoucherStatus{State: VoucherRejected, Code: code, Reason: reason}
}
