package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

type storedSnapshot struct {
	version uint64
	data    []byte
	order   uint64
}

// MemoryStore is an in-process snapshot store and history sink. Snapshots are
// kept encoded so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[uuid.UUID]storedSnapshot
	seq       uint64
	history   []models.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[uuid.UUID]storedSnapshot)}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap models.SessionSnapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.snapshots[snap.ID]; ok && prev.version > snap.Version {
		return nil
	}
	m.seq++
	m.snapshots[snap.ID] = storedSnapshot{version: snap.Version, data: data, order: m.seq}
	return nil
}

// LoadLatestSnapshot returns the most recently saved snapshot.
func (m *MemoryStore) LoadLatestSnapshot(_ context.Context) (models.SessionSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *storedSnapshot
	for _, s := range m.snapshots {
		if latest == nil || s.order > latest.order {
			latest = &s
		}
	}
	if latest == nil {
		return models.SessionSnapshot{}, ErrNotFound
	}
	return decodeSnapshot(latest.data)
}

func (m *MemoryStore) DeleteSnapshot(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

// RecordHistory ignores a second record for the same session.
func (m *MemoryStore) RecordHistory(_ context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.history {
		if h.SessionID == rec.SessionID {
			return nil
		}
	}
	rec.Prizes = slices.Clone(rec.Prizes)
	m.history = append(m.history, rec)
	return nil
}

func (m *MemoryStore) GetHistory(_ context.Context, id uuid.UUID) (models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.history {
		if h.ID == id {
			h.Prizes = slices.Clone(h.Prizes)
			return h, nil
		}
	}
	return models.HistoryRecord{}, ErrNotFound
}

// ListHistory returns records newest first.
func (m *MemoryStore) ListHistory(_ context.Context, limit int) ([]models.HistoryRecord, error) {
	m.mu.RLock()
	out := slices.Clone(m.history)
	m.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.HistoryRecord) int {
		return cmp.Compare(b.FinalizedAt.UnixNano(), a.FinalizedAt.UnixNano())
	})
	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
