package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

// EventTypeSessionHistory is the bus event carrying a full history record.
const EventTypeSessionHistory = "SessionHistory"

// EventNotifier publishes live session events straight to the bus.
type EventNotifier struct {
	Publisher EventPublisher
}

func (n EventNotifier) Notify(ctx context.Context, ev events.Event) error {
	return n.Publisher.Publish(ctx, FromEvent(ev))
}

// HistoryPublisher sends finalized session records to the bus. It is the
// history sink when no database is configured. The history ID doubles as the
// message ID so a retried record is deduplicated by the stream.
type HistoryPublisher struct {
	Publisher EventPublisher
}

func (h HistoryPublisher) RecordHistory(ctx context.Context, rec models.HistoryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}
	return h.Publisher.Publish(ctx, OutboxEvent{
		ID:        rec.ID,
		SessionID: rec.SessionID,
		EventType: EventTypeSessionHistory,
		Payload:   payload,
		CreatedAt: rec.FinalizedAt,
	})
}
