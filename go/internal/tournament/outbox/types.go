package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

// OutboxEvent is a row of the tournament outbox, or a live event on its way
// to the bus.
type OutboxEvent struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// FromEvent converts a session event into an outbox event.
func FromEvent(ev events.Event) OutboxEvent {
	return OutboxEvent{
		ID:        ev.ID,
		SessionID: ev.SessionID,
		EventType: string(ev.Type),
		Payload:   ev.Data,
		CreatedAt: ev.Timestamp,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
