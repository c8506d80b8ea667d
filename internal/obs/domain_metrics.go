package obs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/backend-resto/internal/pricing"
)

// PricingMetrics groups the domain collectors for quoting, voucher evaluation and order placement.
// A nil *PricingMetrics is a valid no-op sink.
type PricingMetrics struct {
	QuotesTotal       *prometheus.CounterVec
	VoucherRejections *prometheus.CounterVec
	Clamps            *prometheus.CounterVec
	OrdersPlaced      *prometheus.CounterVec
	InvoiceTasks      *prometheus.CounterVec
}

var _ pricing.Observer = (*PricingMetrics)(nil)

// NewPricingMetrics initialises and registers the pricing collectors.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PricingMetrics{
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Pricing pipeline runs by caller and voucher outcome.",
		}, []string{"source", "voucher"}),
		VoucherRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_rejections_total",
			Help:      "Vouchers rejected by eligibility rule.",
		}, []string{"reason"}),
		Clamps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_clamps_total",
			Help:      "Discounts capped to keep prices and totals non-negative.",
		}, []string{"stage"}),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Authoritative order placements by outcome.",
		}, []string{"result"}),
		InvoiceTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_tasks_total",
			Help:      "Invoice render task enqueue and processing outcomes.",
		}, []string{"result"}),
	}
	m.QuotesTotal = registerOrReuse(reg, m.QuotesTotal)
	m.VoucherRejections = registerOrReuse(reg, m.VoucherRejections)
	m.Clamps = registerOrReuse(reg, m.Clamps)
	m.OrdersPlaced = registerOrReuse(reg, m.OrdersPlaced)
	m.InvoiceTasks = registerOrReuse(reg, m.InvoiceTasks)
	return m
}

// Clamped implements pricing.Observer.
func (m *PricingMetrics) Clamped(stage string, _, _ pricing.Money) {
	if m == nil {
		return
	}
	m.Clamps.WithLabelValues(stage).Inc()
}

// VoucherRejected implements pricing.Observer.
func (m *PricingMetrics) VoucherRejected(reason pricing.RejectionReason) {
	if m == nil {
		return
	}
	m.VoucherRejections.WithLabelValues(string(reason)).Inc()
}

// Quote records a pipeline run for the given caller ("preview" or "checkout").
func (m *PricingMetrics) Quote(source string, state pricing.VoucherState) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(source, string(state)).Inc()
}

// OrderPlaced records the outcome of an authoritative order placement.
func (m *PricingMetrics) OrderPlaced(result string) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(result).Inc()
}

// InvoiceTask records an invoice task outcome.
func (m *PricingMetrics) InvoiceTask(result string) {
	if m == nil {
		return
	}
	m.InvoiceTasks.WithLabelValues(result).Inc()
}
