package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/sqlutil"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/db"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

// HistoryRepository stores finalized sessions. Every new record is written
// together with a SessionFinalized outbox row so the relay can publish it.
type HistoryRepository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewHistoryRepository(conn *sql.DB) *HistoryRepository {
	return &HistoryRepository{
		db:      conn,
		queries: db.New(conn),
	}
}

func (r *HistoryRepository) RecordHistory(ctx context.Context, rec models.HistoryRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	prizes, err := json.Marshal(rec.Prizes)
	if err != nil {
		return fmt.Errorf("failed to marshal prizes: %w", err)
	}

	err = sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *db.Queries) error {
		inserted, err := q.InsertHistory(ctx, db.InsertHistoryParams{
			ID:             rec.ID,
			SessionID:      rec.SessionID,
			TemplateID:     sqlutil.ToSqlString(rec.TemplateID),
			TemplateName:   rec.TemplateName,
			StartedAt:      rec.Started,
			FinalizedAt:    rec.FinalizedAt,
			ElapsedSeconds: int32(rec.ElapsedSeconds),
			FinalLevel:     int32(rec.FinalLevel),
			TotalPlayers:   int32(rec.Ledger.TotalPlayersEverEntered),
			RealPot:        rec.Pot.RealPot,
			Fee:            rec.Pot.Fee,
			Prizes:         sqlutil.ToNullRawMessage(prizes),
			Record:         record,
		})
		if err != nil {
			return fmt.Errorf("failed to insert history: %w", err)
		}
		if !inserted {
			return nil
		}
		err = q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
			ID:        uuid.New(),
			SessionID: rec.SessionID,
			EventType: string(events.EventTypeSessionFinalized),
			Payload:   record,
		})
		if err != nil {
			return fmt.Errorf("failed to insert SessionFinalized outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) GetHistory(ctx context.Context, id uuid.UUID) (models.HistoryRecord, error) {
	row, err := r.queries.GetHistory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryRecord{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to get history: %w", err)
	}
	return r.dbHistoryToModel(row)
}

func (r *HistoryRepository) ListHistory(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	rows, err := r.queries.ListHistory(ctx, int32(normalizeLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	out := make([]models.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := r.dbHistoryToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *HistoryRepository) dbHistoryToModel(row db.TournamentHistory) (models.HistoryRecord, error) {
	var rec models.HistoryRecord
	if err := json.Unmarshal(row.Record, &rec); err != nil {
		return models.HistoryRecord{}, fmt.Errorf("failed to unmarshal history %s: %w", row.ID, err)
	}
	rec.ID = row.ID
	rec.SessionID = row.SessionID
	rec.TemplateID = sqlutil.FromSqlString(row.TemplateID, "")
	if prizes := sqlutil.FromNullRawMessage(row.Prizes); prizes != nil {
		if err := json.Unmarshal(prizes, &rec.Prizes); err != nil {
			return models.HistoryRecord{}, fmt.Errorf("failed to unmarshal prizes of history %s: %w", row.ID, err)
		}
	}
	return rec, nil
}
