package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a per-product percentage discount attached to an item when it is added to the cart.
type Promotion struct {
	Ref          string          `json:"ref,omitempty"`
	ValuePercent decimal.Decimal `json:"valuePercent"`
}

// OrderItem is one cart or order line as supplied by the catalog.
type OrderItem struct {
	ProductRef string     `json:"productRef"`
	VariantRef string     `json:"variantRef,omitempty"`
	UnitPrice  Money      `json:"unitPrice"`
	Quantity   int        `json:"quantity"`
	Promotion  *Promotion `json:"promotion,omitempty"`
}

// ApplicabilityRule governs how a voucher's product scope must be satisfied by the order.
type ApplicabilityRule string

const (
	// AtLeastOneRequired passes when any eligible product is present.
	AtLeastOneRequired ApplicabilityRule = "at_least_one_required"
	// AllRequired passes only when every eligible product is present.
	AllRequired ApplicabilityRule = "all_required"
)

// Valid reports whether r is one of the known rules.
func (r ApplicabilityRule) Valid() bool {
	return r == AtLeastOneRequired || r == AllRequired
}

// ApplicabilityFromStorage maps a persisted applicability value, rejecting anything unknown.
func ApplicabilityFromStorage(value string) (ApplicabilityRule, error) {
	r := ApplicabilityRule(value)
	if !r.Valid() {
		return "", invalidInput("unknown applicability %q", value)
	}
	return r, nil
}

// Voucher is the order-level discount instrument evaluated by the pipeline. It is read-only here;
// usage counters are owned by the voucher service. IsPrivate is reserved for code distribution: it hides
// the code from public listings and never affects eligibility.
type Voucher struct {
	Code                   string
	Kind                   VoucherKind
	MinOrderValue          Money
	Applicability          ApplicabilityRule
	EligibleProductRefs    []string
	IsActive               bool
	StartDate              time.Time
	EndDate                time.Time
	MaxUsage               int
	RemainingUsage         int
	NumberOfUsagePerUser   int
	IsPrivate              bool
	IsVerificationIdentity bool
	IsUserGroupRestricted  bool
	UserGroups             []string
	AllowedPaymentMethods  []string
}

// Invocation carries the caller context the eligibility rules depend on.
type Invocation struct {
	Now                time.Time
	PaymentMethod      string
	UserSlug           string
	UserUsageCount     int
	IsIdentityVerified bool
	UserGroups         []string
}

// DisplayItem is the priced view of one OrderItem.
type DisplayItem struct {
	ProductRef             string `json:"productRef"`
	VariantRef             string `json:"variantRef,omitempty"`
	OriginalUnitPrice      Money  `json:"originalUnitPrice"`
	Quantity               int    `json:"quantity"`
	PromotionDiscountTotal Money  `json:"promotionDiscountTotal"`
	PriceAfterPromotion    Money  `json:"priceAfterPromotion"`
	FinalUnitPrice         Money  `json:"finalUnitPrice"`
	FinalLineTotal         Money  `json:"finalLineTotal"`
}

// CartTotals aggregates the computed pricing components.
type CartTotals struct {
	SubTotalBeforeDiscount Money `json:"subTotalBeforeDiscount"`
	PromotionDiscount      Money `json:"promotionDiscount"`
	VoucherDiscount        Money `json:"voucherDiscount"`
	FinalTotal             Money `json:"finalTotal"`
}

// SubTotalAfterPromotion is the amount order-level vouchers are computed against.
func (t CartTotals) SubTotalAfterPromotion() Money {
	return t.SubTotalBeforeDiscount - t.PromotionDiscount
}
