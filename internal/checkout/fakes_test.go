package checkout

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/order"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

// memDB is an in-memory Store. Transactions run one at a time on a copy of the state that is only
// published when fn succeeds.
type memDB struct {
	mu        sync.Mutex
	products  map[string]catalog.PricingProduct
	vouchers  map[string]voucher.Record
	usages    []voucher.Usage
	orders    []order.Order
	insertErr error
}

func newMemDB() *memDB {
	return &memDB{products: map[string]catalog.PricingProduct{}, vouchers: map[string]voucher.Record{}}
}

func (m *memDB) InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := m.snapshot()
	if err := fn(ctx, Repos{Catalog: tx, Vouchers: tx, Orders: tx}); err != nil {
		return err
	}
	m.vouchers, m.usages, m.orders = tx.vouchers, tx.usages, tx.orders
	return nil
}

// view returns a read-only snapshot for the preview path.
func (m *memDB) view() *memTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *memDB) snapshot() *memTx {
	return &memTx{
		products:  m.products,
		vouchers:  maps.Clone(m.vouchers),
		usages:    slices.Clone(m.usages),
		orders:    slices.Clone(m.orders),
		insertErr: m.insertErr,
	}
}

func (m *memDB) state() (map[string]voucher.Record, []voucher.Usage, []order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.vouchers), slices.Clone(m.usages), slices.Clone(m.orders)
}

type memTx struct {
	products  map[string]catalog.PricingProduct
	vouchers  map[string]voucher.Record
	usages    []voucher.Usage
	orders    []order.Order
	insertErr error
}

func (t *memTx) GetPricingProduct(_ context.Context, productRef, variantRef string, _ time.Time) (catalog.PricingProduct, error) {
	p, ok := t.products[productRef+"/"+variantRef]
	if !ok {
		return catalog.PricingProduct{}, catalog.ErrNotFound
	}
	return p, nil
}

func (t *memTx) GetVoucherByCode(_ context.Context, code string) (voucher.Record, error) {
	rec, ok := t.vouchers[code]
	if !ok {
		return voucher.Record{}, voucher.ErrNotFound
	}
	return rec, nil
}

func (t *memTx) GetVoucherByCodeForUpdate(ctx context.Context, code string) (voucher.Record, error) {
	return t.GetVoucherByCode(ctx, code)
}

func (t *memTx) CreateVoucher(context.Context, voucher.Definition) (voucher.Record, error) {
	return voucher.Record{}, errors.New("not supported")
}

func (t *memTx) UpdateVoucher(context.Context, voucher.Definition) (voucher.Record, error) {
	return voucher.Record{}, errors.New("not supported")
}

func (t *memTx) CountVoucherUsageByUser(_ context.Context, voucherID uuid.UUID, userID string) (int, error) {
	n := 0
	for _, u := range t.usages {
		if u.VoucherID == voucherID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) ConsumeVoucherUsage(_ context.Context, voucherID uuid.UUID) (bool, error) {
	for code, rec := range t.vouchers {
		if rec.ID != voucherID {
			continue
		}
		if rec.Voucher.RemainingUsage <= 0 {
			return false, nil
		}
		rec.Voucher.RemainingUsage--
		t.vouchers[code] = rec
		return true, nil
	}
	return false, nil
}

func (t *memTx) GetVoucherUsageByOrder(_ context.Context, voucherID, orderID uuid.UUID) (voucher.Usage, error) {
	for _, u := range t.usages {
		if u.VoucherID == voucherID && u.OrderID == orderID {
			return u, nil
		}
	}
	return voucher.Usage{}, voucher.ErrNotFound
}

func (t *memTx) InsertVoucherUsage(_ context.Context, u voucher.Usage) error {
	t.usages = append(t.usages, u)
	return nil
}

func (t *memTx) Insert(_ context.Context, o order.Order) error {
	if t.insertErr != nil {
		return t.insertErr
	}
	t.orders = append(t.orders, o)
	return nil
}

type captureEmitter struct {
	mu     sync.Mutex
	topics []string
	events []any
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, topic string, aggregateID uuid.UUID, payload any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.events = append(c.events, payload)
	if c.err != nil {
		return events.Event{}, c.err
	}
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID}, nil
}
