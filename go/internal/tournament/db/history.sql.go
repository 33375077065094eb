package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertHistory = `
INSERT INTO tournament_history (
    id, session_id, template_id, template_name, started_at, finalized_at,
    elapsed_seconds, final_level, total_players, real_pot, fee, prizes, record
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (session_id) DO NOTHING
`

type InsertHistoryParams struct {
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

// InsertHistory reports whether a row was written; a second record for the
// same session is ignored.
func (q *Queries) InsertHistory(ctx context.Context, arg InsertHistoryParams) (bool, error) {
	result, err := q.db.ExecContext(ctx, insertHistory,
		arg.ID,
		arg.SessionID,
		arg.TemplateID,
		arg.TemplateName,
		arg.StartedAt,
		arg.FinalizedAt,
		arg.ElapsedSeconds,
		arg.FinalLevel,
		arg.TotalPlayers,
		arg.RealPot,
		arg.Fee,
		arg.Prizes,
		arg.Record,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

const getHistory = `
SELECT id, session_id, template_id, template_name, started_at, finalized_at,
       elapsed_seconds, final_level, total_players, real_pot, fee, prizes, record
FROM tournament_history
WHERE id = $1
`

func (q *Queries) GetHistory(ctx context.Context, id uuid.UUID) (TournamentHistory, error) {
	row := q.db.QueryRowContext(ctx, getHistory, id)
	var i TournamentHistory
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.TemplateID,
		&i.TemplateName,
		&i.StartedAt,
		&i.FinalizedAt,
		&i.ElapsedSeconds,
		&i.FinalLevel,
		&i.TotalPlayers,
		&i.RealPot,
		&i.Fee,
		&i.Prizes,
		&i.Record,
	)
	return i, err
}

const listHistory = `
SELECT id, session_id, template_id, template_name, started_at, finalized_at,
       elapsed_seconds, final_level, total_players, real_pot, fee, prizes, record
FROM tournament_history
ORDER BY finalized_at DESC
LIMIT $1
`

func (q *Queries) ListHistory(ctx context.Context, limit int32) ([]TournamentHistory, error) {
	rows, err := q.db.QueryContext(ctx, listHistory, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TournamentHistory
	for rows.Next() {
		var i TournamentHistory
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.TemplateID,
			&i.TemplateName,
			&i.StartedAt,
			&i.FinalizedAt,
			&i.ElapsedSeconds,
			&i.FinalLevel,
			&i.TotalPlayers,
			&i.RealPot,
			&i.Fee,
			&i.Prizes,
			&i.Record,
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
