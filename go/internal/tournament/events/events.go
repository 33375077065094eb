package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything a session announces to the outside.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of tournament event
type EventType string

const (
	EventTypeSessionStarted           EventType = "SessionStarted"
	EventTypeClockStarted             EventType = "ClockStarted"
	EventTypeClockPaused              EventType = "ClockPaused"
	EventTypeLevelAdvanced            EventType = "LevelAdvanced"
	EventTypePunctualityBonusExpiring EventType = "PunctualityBonusExpiring"
	EventTypeSessionFinalized         EventType = "SessionFinalized"
)

// Notifications are the two signal kinds an audio/visual layer reacts to.
func (t EventType) Notification() bool {
	return t == EventTypeLevelAdvanced || t == EventTypePunctualityBonusExpiring
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	TemplateID   string    `json:"template_id"`
	TemplateName string    `json:"template_name"`
	TotalLevels  int       `json:"total_levels"`
	StartedAt    time.Time `json:"started_at"`
}

// ClockPayload is the payload for ClockStarted and ClockPaused events
type ClockPayload struct {
	ElapsedSeconds int `json:"elapsed_seconds"`
	Level          int `json:"level"`
}

// LevelAdvancedPayload is the payload for a LevelAdvanced event. Levels are 1-based.
type LevelAdvancedPayload struct {
	FromLevel      int   `json:"from_level"`
	ToLevel        int   `json:"to_level"`
	SmallBlind     int64 `json:"small_blind"`
	BigBlind       int64 `json:"big_blind"`
	Ante           int64 `json:"ante"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
}

// PunctualityBonusExpiringPayload is the payload for a PunctualityBonusExpiring event
type PunctualityBonusExpiringPayload struct {
	TimeLeftSeconds int `json:"time_left_seconds"`
}

// SessionFinalizedPayload is the payload for a SessionFinalized event
type SessionFinalizedPayload struct {
	HistoryID  uuid.UUID `json:"history_id"`
	FinalLevel int       `json:"final_level"`
	RealPot    int64     `json:"real_pot"`
}

// New builds an event with a fresh ID, marshalling payload into Data.
func New(sessionID uuid.UUID, eventType EventType, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event Event) (any, error) {
	var err error
	switch event.Type {
	case EventTypeSessionStarted:
		var payload SessionStartedPayload
		if err = json.Unmarshal(event.Data, &payload); err == nil {
			return payload, nil
		}
	case EventTypeClockStarted, EventTypeClockPaused:
		var payload ClockPayload
		if err = json.Unmarshal(event.Data, &payload); err == nil {
			return payload, nil
		}
	case EventTypeLevelAdvanced:
		var payload LevelAdvancedPayload
		if err = json.Unmarshal(event.Data, &payload); err == nil {
			return payload, nil
		}
	case EventTypePunctualityBonusExpiring:
		var payload PunctualityBonusExpiringPayload
		if err = json.Unmarshal(event.Data, &payload); err == nil {
			return payload, nil
		}
	case EventTypeSessionFinalized:
		var payload SessionFinalizedPayload
		if err = json.Unmarshal(event.Data, &payload); err == nil {
			return payload, nil
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
	return nil, fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
}

// Signal is an event before it is stamped with an ID, session and time.
type Signal struct {
	Type    EventType
	Payload any
}

// Stamp wraps the signal in an Event envelope.
func (s Signal) Stamp(sessionID uuid.UUID, at time.Time) (Event, error) {
	return New(sessionID, s.Type, at, s.Payload)
}
