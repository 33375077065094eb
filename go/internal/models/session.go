package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the status of a tournament session.
type SessionStatus string

const (
	SessionStatusIdle            SessionStatus = "IDLE"
	SessionStatusPaused          SessionStatus = "PAUSED"
	SessionStatusRunning         SessionStatus = "RUNNING"
	SessionStatusLevelsExhausted SessionStatus = "LEVELS_EXHAUSTED"
	SessionStatusFinalized       SessionStatus = "FINALIZED"
)

// ClockState is the time-driven part of a session.
type ClockState struct {
	ElapsedSeconds    int  `json:"elapsed_seconds"`
	Running           bool `json:"running"`
	CurrentLevelIndex int  `json:"current_level_index"`
}

// SessionSnapshot is what gets persisted for crash recovery.
type SessionSnapshot struct {
	ID               uuid.UUID  `json:"id"`
	Started          time.Time  `json:"started"`
	SavedAt          time.Time  `json:"saved_at"`
	Version          uint64     `json:"version"`
	Template         Template   `json:"template"`
	Clock            ClockState `json:"clock"`
	Ledger           Ledger     `json:"ledger"`
	BonusWarningSent bool       `json:"bonus_warning_sent,omitempty"`
	EntriesClosed    bool       `json:"entries_closed,omitempty"`
	Finalized        bool       `json:"finalized,omitempty"`
}

// HistoryRecord is emitted once when a session is finalized.
type HistoryRecord struct {
	ID             uuid.UUID    `json:"id"`
	SessionID      uuid.UUID    `json:"session_id"`
	TemplateID     string       `json:"template_id"`
	TemplateName   string       `json:"template_name"`
	Started        time.Time    `json:"started"`
	FinalizedAt    time.Time    `json:"finalized_at"`
	ElapsedSeconds int          `json:"elapsed_seconds"`
	FinalLevel     int          `json:"final_level"` // 1-based
	Ledger         Ledger       `json:"ledger"`
	Pot            PotBreakdown `json:"pot"`
	BubblePrize    int64        `json:"bubble_prize"`
	Prizes         []RankPrize  `json:"prizes"`
}

// Result reports the outcome of a control action. A rejected action is a
// no-op with a human readable reason, never an error.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Accepted is the Result of an action that changed state.
func Accepted() Result { return Result{OK: true} }

// Rejected is the Result of an action that was refused.
func Rejected(reason string) Result { return Result{Reason: reason} }
