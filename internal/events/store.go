package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/db"
)

const insertDomainEvent = `
INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// Store writes domain events to Postgres.
type Store struct {
	DB db.DBTX
}

func (s Store) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	var ev Event
	err := s.DB.QueryRow(ctx, insertDomainEvent, topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
