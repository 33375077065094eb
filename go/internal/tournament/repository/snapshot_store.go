package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

const upsertSnapshot = `
INSERT INTO session_snapshots (session_id, version, finalized, snapshot, saved_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE
SET version   = EXCLUDED.version,
    finalized = EXCLUDED.finalized,
    snapshot  = EXCLUDED.snapshot,
    saved_at  = EXCLUDED.saved_at
WHERE session_snapshots.version <= EXCLUDED.version
`

const loadLatestSnapshot = `
SELECT snapshot FROM session_snapshots ORDER BY saved_at DESC LIMIT 1
`

const deleteSnapshot = `
DELETE FROM session_snapshots WHERE session_id = $1
`

// SnapshotStore keeps one jsonb snapshot per session in Postgres. An older
// version never overwrites a newer one.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snap models.SessionSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, upsertSnapshot, snap.ID, int64(snap.Version), snap.Finalized, data, snap.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) LoadLatestSnapshot(ctx context.Context) (models.SessionSnapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, loadLatestSnapshot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SessionSnapshot{}, ErrNotFound
	}
	if err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *SnapshotStore) DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, deleteSnapshot, sessionID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
