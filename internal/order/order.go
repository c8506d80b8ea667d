package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

// ErrNotFound is returned when an order does not exist or belongs to another user.
var ErrNotFound = errors.New("order: not found")

// StatusPlaced is the status of a freshly placed order.
const StatusPlaced = "placed"

// Order is a persisted, priced order. Totals and Items are stored exactly as the pricing engine
// produced them so invoices never recompute amounts.
type Order struct {
	ID            uuid.UUID             `json:"id"`
	UserID        string                `json:"userId"`
	Status        string                `json:"status"`
	PaymentMethod string                `json:"paymentMethod"`
	Currency      string                `json:"currency"`
	VoucherCode   string                `json:"voucherCode,omitempty"`
	Totals        pricing.CartTotals    `json:"totals"`
	Items         []pricing.DisplayItem `json:"items"`
	CreatedAt     time.Time             `json:"createdAt"`
}
