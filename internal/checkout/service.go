package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/obs"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/tasks"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

var (
	// ErrQuoteMismatch is returned when the authoritative total differs from the total the client saw.
	ErrQuoteMismatch = errors.New("checkout: quoted total changed")
	// ErrUnauthenticated is returned when an order is placed without a user.
	ErrUnauthenticated = errors.New("checkout: authentication required")
	// ErrEmptyOrder is returned for requests without lines.
	ErrEmptyOrder = errors.New("checkout: order has no items")
)

// MismatchError carries the fresh quote so the client can show the new amount.
type MismatchError struct {
	Expected pricing.Money
	Quote    Quote
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, computed %d", ErrQuoteMismatch, e.Expected, e.Quote.Totals.FinalTotal)
}

func (e *MismatchError) Unwrap() error { return ErrQuoteMismatch }

// LineInput is one requested order line.
type LineInput struct {
	ProductRef string `json:"productRef" validate:"required,max=64"`
	VariantRef string `json:"variantRef,omitempty" validate:"omitempty,max=64"`
	Quantity   int    `json:"quantity" validate:"gt=0,lte=999"`
}

// Input is the body shared by quote and order placement.
type Input struct {
	Items         []LineInput `json:"items" validate:"required,min=1,max=100,dive"`
	VoucherCode   string      `json:"voucherCode,omitempty" validate:"omitempty,max=64"`
	PaymentMethod string      `json:"paymentMethod" validate:"required,max=32"`
	// ExpectedTotal is the final total the client displayed. Placement fails when it no longer matches.
	ExpectedTotal *int64 `json:"expectedTotal,omitempty" validate:"omitempty,gte=0"`
}

// VoucherView is the voucher outcome with its user-facing message.
type VoucherView struct {
	pricing.VoucherStatus
	Message string `json:"message,omitempty"`
}

// Quote is a priced preview of an order.
type Quote struct {
	Currency string                `json:"currency"`
	Totals   pricing.CartTotals    `json:"totals"`
	Items    []pricing.DisplayItem `json:"items"`
	Voucher  VoucherView           `json:"voucher"`
}

// Placement is the result of a successful order placement.
type Placement struct {
	Order   order.Order `json:"order"`
	Voucher VoucherView `json:"voucher"`
}

// Repos are the stores bound to one transaction.
type Repos struct {
	Catalog  catalog.Querier
	Vouchers voucher.Querier
	Orders   OrderWriter
}

// OrderWriter persists placed orders.
type OrderWriter interface {
	Insert(ctx context.Context, o order.Order) error
}

// Store runs fn inside a single database transaction. Returning an error rolls everything back.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// Locker serialises placements per key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Emitter publishes domain events after commit.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.Event, error)
}

// Service prices carts for preview and places orders authoritatively.
type Service struct {
	// Catalog and Vouchers serve the preview path and may be cache-backed.
	Catalog  *catalog.Service
	Vouchers *voucher.Service

	Store    Store
	Locker   Locker
	LockTTL  time.Duration
	Engine   pricing.Engine
	Currency string
	Events   Emitter
	Metrics  *obs.PricingMetrics
	Now      func() time.Time
	NewID    func() uuid.UUID
}

type evaluation struct {
	result pricing.Result
	loaded *voucher.Loaded
	code   string
}

// Quote prices the input without writing anything. Unknown voucher codes yield a rejected status
// with promotion-only totals.
func (s *Service) Quote(ctx context.Context, caller common.Identity, in Input) (Quote, error) {
	if s == nil || s.Catalog == nil || s.Vouchers == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	if len(in.Items) == 0 {
		return Quote{}, ErrEmptyOrder
	}
	ctx, span := obs.StartSpan(ctx, "checkout.quote")
	ev, err := s.evaluate(ctx, s.Catalog, s.Vouchers, caller, in, false)
	obs.EndSpan(span, err)
	if err != nil {
		return Quote{}, err
	}
	s.Metrics.Quote("preview", ev.result.Voucher.State)
	return s.quoteFrom(ev.result), nil
}

// PlaceOrder re-prices the input from fresh data inside one transaction, redeems the voucher when it
// applies and persists the order. Placements of the same user are serialised so per-user voucher
// limits hold under concurrent submissions.
func (s *Service) PlaceOrder(ctx context.Context, caller common.Identity, in Input) (Placement, error) {
	ctx, span := obs.StartSpan(ctx, "checkout.place_order")
	placed, err := s.placeOrder(ctx, caller, in)
	obs.EndSpan(span, err)
	return placed, err
}

func (s *Service) placeOrder(ctx context.Context, caller common.Identity, in Input) (Placement, error) {
	if s == nil || s.Store == nil {
		return Placement{}, errors.New("checkout service not configured")
	}
	if strings.TrimSpace(caller.UserID) == "" {
		return Placement{}, ErrUnauthenticated
	}
	if len(in.Items) == 0 {
		return Placement{}, ErrEmptyOrder
	}

	var placed Placement
	var applied *evaluation
	run := func(ctx context.Context) error {
		return s.Store.InTx(ctx, func(ctx context.Context, r Repos) error {
			cat, err := catalog.NewService(catalog.ServiceConfig{Queries: r.Catalog, Now: s.now})
			if err != nil {
				return err
			}
			vs := &voucher.Service{Q: r.Vouchers}
			ev, err := s.evaluate(ctx, cat, vs, caller, in, true)
			if err != nil {
				return err
			}
			if in.ExpectedTotal != nil && *in.ExpectedTotal != ev.result.Totals.FinalTotal {
				return &MismatchError{Expected: *in.ExpectedTotal, Quote: s.quoteFrom(ev.result)}
			}

			o := order.Order{
				ID:            s.newID(),
				UserID:        caller.UserID,
				Status:        order.StatusPlaced,
				PaymentMethod: in.PaymentMethod,
				Currency:      s.Currency,
				Totals:        ev.result.Totals,
				Items:         ev.result.Items,
				CreatedAt:     s.now().UTC(),
			}
			if ev.result.Voucher.Applied() {
				o.VoucherCode = ev.code
				if err := vs.Redeem(ctx, *ev.loaded, o.ID, caller.UserID, o.Totals.VoucherDiscount); err != nil {
					return err
				}
				applied = &ev
			}
			if err := r.Orders.Insert(ctx, o); err != nil {
				return err
			}
			placed = Placement{Order: o, Voucher: viewOf(ev.result.Voucher)}
			return nil
		})
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, lock.CheckoutKey(caller.UserID), s.lockTTL(), run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		s.Metrics.OrderPlaced(outcome(err))
		return Placement{}, err
	}

	s.Metrics.OrderPlaced("placed")
	s.Metrics.Quote("checkout", placed.Voucher.State)
	s.publish(ctx, placed.Order, applied)
	return placed, nil
}

func (s *Service) evaluate(ctx context.Context, cat *catalog.Service, vs *voucher.Service, caller common.Identity, in Input, forUpdate bool) (evaluation, error) {
	lines := make([]catalog.Line, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, catalog.Line{ProductRef: it.ProductRef, VariantRef: it.VariantRef, Quantity: it.Quantity})
	}
	items, err := cat.Resolve(ctx, lines)
	if err != nil {
		return evaluation{}, err
	}

	ev := evaluation{code: strings.TrimSpace(in.VoucherCode)}
	var candidate *pricing.Voucher
	missing := false
	if ev.code != "" {
		loaded, err := vs.Load(ctx, ev.code, caller.UserID, forUpdate)
		switch {
		case errors.Is(err, voucher.ErrNotFound):
			missing = true
		case err != nil:
			return evaluation{}, err
		default:
			ev.loaded = &loaded
			candidate = &loaded.Voucher
		}
	}

	inv := pricing.Invocation{
		Now:                s.now(),
		PaymentMethod:      in.PaymentMethod,
		UserSlug:           caller.UserID,
		IsIdentityVerified: caller.IdentityVerified,
		UserGroups:         caller.Groups,
	}
	if ev.loaded != nil {
		inv.UserUsageCount = ev.loaded.UserUsage
	}
	ev.result, err = s.engine(ctx).ComputeTotals(items, candidate, inv)
	if err != nil {
		return evaluation{}, err
	}
	if missing {
		ev.result.Voucher = pricing.Rejected(ev.code, pricing.ReasonNotFound)
		s.Metrics.VoucherRejected(pricing.ReasonNotFound)
	}
	return ev, nil
}

// publish emits post-commit events. Failures are logged; the order stands.
func (s *Service) publish(ctx context.Context, o order.Order, applied *evaluation) {
	if s.Events == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	payload := tasks.InvoicePayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		VoucherCode:   o.VoucherCode,
		Totals:        o.Totals,
		Items:         o.Items,
		PlacedAt:      o.CreatedAt,
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderPlaced, o.ID, payload); err != nil {
		logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("order event not fully delivered")
	}
	if applied == nil || applied.loaded == nil {
		return
	}
	redeemed := map[string]any{
		"voucherId": applied.loaded.ID,
		"code":      applied.code,
		"orderId":   o.ID,
		"amount":    o.Totals.VoucherDiscount,
	}
	if _, err := s.Events.Emit(ctx, events.TopicVoucherRedeemed, applied.loaded.ID, redeemed); err != nil {
		logger.Warn().Err(err).Str("order_id", o.ID.String()).Msg("voucher event not fully delivered")
	}
}

func (s *Service) quoteFrom(res pricing.Result) Quote {
	return Quote{Currency: s.Currency, Totals: res.Totals, Items: res.Items, Voucher: viewOf(res.Voucher)}
}

func viewOf(status pricing.VoucherStatus) VoucherView {
	view := VoucherView{VoucherStatus: status}
	if status.State == pricing.VoucherRejected {
		view.Message = status.Reason.Message()
	}
	return view
}

func (s *Service) engine(ctx context.Context) pricing.Engine {
	e := s.Engine
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		e.Logger = l
	}
	return e
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() uuid.UUID {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 10 * time.Second
	}
	return s.LockTTL
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrQuoteMismatch):
		return "quote_mismatch"
	case errors.Is(err, lock.ErrNotAcquired):
		return "busy"
	case errors.Is(err, voucher.ErrUsageExhausted):
		return "voucher_exhausted"
	case errors.Is(err, catalog.ErrNotFound):
		return "unknown_product"
	case errors.Is(err, pricing.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
