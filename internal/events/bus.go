package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a persisted domain event.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error)
}

// Notifier reacts to emitted events (e.g. invoice rendering, metrics).
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus persists domain events and fans them out to downstream handlers. A Bus without a Store still
// notifies; the event then carries a generated ID.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured handlers. Notifier failures are joined
// and returned after every notifier ran.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (Event, error) {
	if b == nil {
		return Event{}, errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if aggregateID == uuid.Nil {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	ev := Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: encoded, OccurredAt: time.Now().UTC()}
	if b.Store != nil {
		ev, err = b.Store.InsertDomainEvent(ctx, topic, aggregateID, encoded)
		if err != nil {
			return Event{}, fmt.Errorf("events: persist event: %w", err)
		}
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return validJSON(v)
	case json.RawMessage:
		return validJSON(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return []byte("{}"), nil
		}
		return validJSON([]byte(v))
	default:
		return json.Marshal(v)
	}
}

func validJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
