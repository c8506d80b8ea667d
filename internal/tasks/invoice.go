package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/events"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

// TypeInvoiceRender is the asynq task type for rendering an order invoice.
const TypeInvoiceRender = "invoice:render"

// InvoicePayload carries the persisted order totals verbatim. Renderers must not recompute amounts.
type InvoicePayload struct {
	OrderID       uuid.UUID             `json:"orderId"`
	UserID        string                `json:"userId"`
	Currency      string                `json:"currency"`
	PaymentMethod string                `json:"paymentMethod"`
	VoucherCode   string                `json:"voucherCode,omitempty"`
	Totals        pricing.CartTotals    `json:"totals"`
	Items         []pricing.DisplayItem `json:"items"`
	PlacedAt      time.Time             `json:"placedAt"`
}

// NewInvoiceRenderTask builds the task for p. The task ID is derived from the order so a retried
// enqueue never renders twice.
func NewInvoiceRenderTask(p InvoicePayload, opts ...asynq.Option) (*asynq.Task, error) {
	if p.OrderID == uuid.Nil {
		return nil, errors.New("tasks: order id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	base := []asynq.Option{asynq.TaskID(invoiceTaskID(p.OrderID)), asynq.MaxRetry(10), asynq.Timeout(time.Minute)}
	return asynq.NewTask(TypeInvoiceRender, data, append(base, opts...)...), nil
}

func invoiceTaskID(orderID uuid.UUID) string {
	return "invoice:" + orderID.String()
}

// TaskClient is the subset of *asynq.Client used by Enqueuer.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ResultRecorder counts task outcomes.
type ResultRecorder interface {
	InvoiceTask(result string)
}

// Enqueuer submits invoice tasks. It also acts as an events.Notifier for placed orders.
type Enqueuer struct {
	Client  TaskClient
	Queue   string
	Metrics ResultRecorder
}

// EnqueueInvoice submits the render task. A task that already exists for the order counts as success.
func (e Enqueuer) EnqueueInvoice(ctx context.Context, p InvoicePayload) error {
	if e.Client == nil {
		return errors.New("tasks: client not configured")
	}
	var opts []asynq.Option
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	task, err := NewInvoiceRenderTask(p, opts...)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	switch {
	case err == nil:
		e.record("enqueued")
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		e.record("duplicate")
		return nil
	default:
		e.record("enqueue_failed")
		return fmt.Errorf("tasks: enqueue invoice: %w", err)
	}
}

// Notify enqueues an invoice for order.placed events and ignores every other topic.
func (e Enqueuer) Notify(ctx context.Context, ev events.Event) error {
	if ev.Topic != events.TopicOrderPlaced {
		return nil
	}
	var p InvoicePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("tasks: decode order event: %w", err)
	}
	return e.EnqueueInvoice(ctx, p)
}

func (e Enqueuer) record(result string) {
	if e.Metrics != nil {
		e.Metrics.InvoiceTask(result)
	}
}

// Renderer produces and delivers the invoice document.
type Renderer interface {
	Render(ctx context.Context, p InvoicePayload) error
}

// LogRenderer records the invoice summary in the worker log. It stands in until a document renderer
// is configured.
type LogRenderer struct {
	Logger zerolog.Logger
}

func (r LogRenderer) Render(_ context.Context, p InvoicePayload) error {
	r.Logger.Info().
		Str("order_id", p.OrderID.String()).
		Str("user_id", p.UserID).
		Str("currency", p.Currency).
		Int64("subtotal", p.Totals.SubTotalBeforeDiscount).
		Int64("promotion_discount", p.Totals.PromotionDiscount).
		Int64("voucher_discount", p.Totals.VoucherDiscount).
		Int64("total", p.Totals.FinalTotal).
		Int("lines", len(p.Items)).
		Msg("invoice rendered")
	return nil
}

// InvoiceHandler processes invoice render tasks.
type InvoiceHandler struct {
	Renderer Renderer
	Logger   zerolog.Logger
	Metrics  ResultRecorder
}

// ProcessTask implements asynq.Handler. Undecodable payloads are not retried.
func (h InvoiceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p InvoicePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.record("invalid")
		return fmt.Errorf("decode invoice payload: %v: %w", err, asynq.SkipRetry)
	}
	if h.Renderer == nil {
		return errors.New("tasks: renderer not configured")
	}
	if err := h.Renderer.Render(ctx, p); err != nil {
		h.record("failed")
		h.Logger.Warn().Err(err).Str("order_id", p.OrderID.String()).Msg("invoice render failed")
		return err
	}
	h.record("rendered")
	return nil
}

func (h InvoiceHandler) record(result string) {
	if h.Metrics != nil {
		h.Metrics.InvoiceTask(result)
	}
}

// NewServeMux registers the invoice handler on an asynq mux.
func NewServeMux(h InvoiceHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeInvoiceRender, h)
	return mux
}
