package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type TournamentHistory struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	TemplateID     sql.NullString
	TemplateName   string
	StartedAt      time.Time
	FinalizedAt    time.Time
	ElapsedSeconds int32
	FinalLevel     int32
	TotalPlayers   int32
	RealPot        int64
	Fee            int64
	Prizes         pqtype.NullRawMessage
	Record         json.RawMessage
}

type TournamentOutbox struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}
