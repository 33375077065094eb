package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// DefaultHistoryLimit caps history listings when no limit is given.
const DefaultHistoryLimit = 50

func encodeSnapshot(snap models.SessionSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot only checks that the payload is JSON of the right shape.
// Deciding whether the snapshot is usable is left to the session.
func decodeSnapshot(data []byte) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return snap, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
