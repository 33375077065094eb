package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const insertOutboxEvent = `
INSERT INTO tournament_outbox (id, session_id, event_type, payload)
VALUES ($1, $2, $3, $4)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	EventType string
	Payload   json.RawMessage
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent,
		arg.ID,
		arg.SessionID,
		arg.EventType,
		arg.Payload,
	)
	return err
}

const fetchOutboxByID = `
SELECT id, session_id, event_type, payload, created_at, sent_at
FROM tournament_outbox
WHERE id = $1
`

func (q *Queries) FetchOutboxByID(ctx context.Context, id uuid.UUID) (TournamentOutbox, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByID, id)
	var i TournamentOutbox
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.EventType,
		&i.Payload,
		&i.CreatedAt,
		&i.SentAt,
	)
	return i, err
}

const fetchUnsentOutbox = `
SELECT id, session_id, event_type, payload, created_at, sent_at
FROM tournament_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (q *Queries) FetchUnsentOutbox(ctx context.Context, limit int32) ([]TournamentOutbox, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutbox, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TournamentOutbox
	for rows.Next() {
		var i TournamentOutbox
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.EventType,
			&i.Payload,
			&i.CreatedAt,
			&i.SentAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxSent = `
UPDATE tournament_outbox SET sent_at = now() WHERE id = $1
`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}
