package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/bonus"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/clock"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/entry"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/schedule"
)

// ErrInvalidSnapshot is returned when a snapshot cannot be turned back into a session.
var ErrInvalidSnapshot = errors.New("invalid session snapshot")

const (
	rejectedFinalized     = "session is finalized"
	rejectedEntriesClosed = "entries are closed"
)

// Session is the single mutable state of a running tournament. It is not safe
// for concurrent use; the orchestrator is its only owner.
type Session struct {
	id       uuid.UUID
	started  time.Time
	template models.Template

	clock  *clock.Clock
	ledger models.Ledger
	book   *entry.Book

	bonusWarningSent bool
	// entriesClosed latches the entry gate: once closed it stays closed for
	// the rest of the session even if the clock is moved back.
	entriesClosed bool
	finalized     bool

	// version changes on every state change, ledgerVersion only when the
	// ledger does. Financials are cached against ledgerVersion.
	version       uint64
	ledgerVersion uint64
	financials    *Financials
	cachedAt      uint64
}

// New starts a paused session from a copy of tmpl.
func New(id uuid.UUID, tmpl models.Template, started time.Time) (*Session, error) {
	sched, err := schedule.New(tmpl.Levels)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s := &Session{
		id:       id,
		started:  started,
		template: tmpl.Clone(),
		clock:    clock.Start(sched),
	}
	s.book = entry.NewBook(&s.ledger, s.gate())
	return s, nil
}

// Restore rebuilds a session from a snapshot. Only a missing or empty level
// schedule is fatal; everything else falls back to a safe default.
func Restore(snap models.SessionSnapshot) (*Session, error) {
	if len(snap.Template.Levels) == 0 {
		return nil, fmt.Errorf("%w: schedule is empty", ErrInvalidSnapshot)
	}
	sched, err := schedule.New(snap.Template.Levels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	id := snap.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	tmpl := snap.Template.Clone()
	if tmpl.LastEntryLevel != nil && *tmpl.LastEntryLevel <= 0 {
		tmpl.LastEntryLevel = nil
	}

	s := &Session{
		id:               id,
		started:          snap.Started,
		template:         tmpl,
		clock:            clock.Restore(sched, snap.Clock),
		ledger:           entry.Sanitize(snap.Ledger),
		bonusWarningSent: snap.BonusWarningSent,
		entriesClosed:    snap.EntriesClosed,
		finalized:        snap.Finalized,
		version:          snap.Version,
	}
	s.book = entry.NewBook(&s.ledger, s.gate())
	s.latchGate()
	return s, nil
}

func (s *Session) gate() entry.Gate {
	return entry.Gate{LastEntryLevel: s.template.LastEntryLevel}
}

func (s *Session) latchGate() {
	if !s.entriesClosed && s.gate().Closed(s.clock.State().CurrentLevelIndex) {
		s.entriesClosed = true
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) Started() time.Time { return s.started }

func (s *Session) Version() uint64 { return s.version }

func (s *Session) Finalized() bool { return s.finalized }

// Template returns a copy of the template the session was started from.
func (s *Session) Template() models.Template { return s.template.Clone() }

func (s *Session) ClockState() models.ClockState { return s.clock.State() }

func (s *Session) Ledger() models.Ledger { return s.ledger }

func (s *Session) Running() bool { return !s.finalized && s.clock.Running() }

func (s *Session) Status() models.SessionStatus {
	switch {
	case s.finalized:
		return models.SessionStatusFinalized
	case s.clock.Running() && s.clock.Exhausted():
		return models.SessionStatusLevelsExhausted
	case s.clock.Running():
		return models.SessionStatusRunning
	default:
		return models.SessionStatusPaused
	}
}

// Bonus reports the punctuality bonus for the current clock state.
func (s *Session) Bonus() bonus.Status {
	return bonus.Evaluate(s.clock.Schedule(), s.clock.State())
}

// Step is the one-second transition of a running session. Elapsed time is
// committed first, then the level is checked and then the bonus warning, so
// the returned signals always describe the new state.
func (s *Session) Step() []events.Signal {
	if !s.Running() {
		return nil
	}
	sched := s.clock.Schedule()
	before := s.clock.State()
	prevLeft := bonus.TimeLeft(sched, before)

	res := s.clock.Tick()
	if !res.Ticked {
		return nil
	}
	s.version++
	s.latchGate()
	after := s.clock.State()

	var out []events.Signal
	if res.Advanced {
		lvl, _ := sched.Level(res.ToIndex)
		out = append(out, events.Signal{
			Type: events.EventTypeLevelAdvanced,
			Payload: events.LevelAdvancedPayload{
				FromLevel:      res.FromIndex + 1,
				ToLevel:        res.ToIndex + 1,
				SmallBlind:     lvl.SmallBlind,
				BigBlind:       lvl.BigBlind,
				Ante:           lvl.Ante,
				ElapsedSeconds: after.ElapsedSeconds,
			},
		})
	}

	if !s.bonusWarningSent && before.CurrentLevelIndex == 0 {
		left := bonus.TimeLeft(sched, after)
		if bonus.CrossedWarningThreshold(prevLeft, left) {
			s.bonusWarningSent = true
			out = append(out, events.Signal{
				Type:    events.EventTypePunctualityBonusExpiring,
				Payload: events.PunctualityBonusExpiringPayload{TimeLeftSeconds: left},
			})
		}
	}
	return out
}

// apply runs a control action unless the session is finalized and bumps the
// versions when it succeeded.
func (s *Session) apply(touchesLedger bool, action func() models.Result) models.Result {
	if s.finalized {
		return models.Rejected(rejectedFinalized)
	}
	res := action()
	if res.OK {
		s.latchGate()
		s.version++
		if touchesLedger {
			s.ledgerVersion++
		}
	}
	return res
}

func (s *Session) Play() models.Result  { return s.apply(false, s.clock.Play) }
func (s *Session) Pause() models.Result { return s.apply(false, s.clock.Pause) }

// AdvanceLevel moves one level in direction (clock.Forward or clock.Backward).
func (s *Session) AdvanceLevel(direction int) models.Result {
	return s.apply(false, func() models.Result { return s.clock.AdvanceManually(direction) })
}

func (s *Session) JumpToEndOfLevel() models.Result {
	return s.apply(false, s.clock.JumpToEndOfCurrentLevel)
}

// AddPlayer registers a player. With punctual set the player earns the
// punctuality bonus if the tracker still allows it.
func (s *Session) AddPlayer(punctual bool) models.Result {
	return s.apply(true, func() models.Result {
		if s.entriesClosed {
			return models.Rejected(rejectedEntriesClosed)
		}
		return s.book.AddPlayer(s.clock.State().CurrentLevelIndex, punctual, s.Bonus().Grantable())
	})
}

func (s *Session) RemovePlayer() models.Result { return s.apply(true, s.book.RemovePlayer) }

func (s *Session) AddEntry() models.Result {
	return s.apply(true, func() models.Result {
		if s.entriesClosed {
			return models.Rejected(rejectedEntriesClosed)
		}
		return s.book.AddEntry(s.clock.State().CurrentLevelIndex)
	})
}

func (s *Session) RemoveEntry() models.Result       { return s.apply(true, s.book.RemoveEntry) }
func (s *Session) AddAddon() models.Result          { return s.apply(true, s.book.AddAddon) }
func (s *Session) RemoveAddon() models.Result       { return s.apply(true, s.book.RemoveAddon) }
func (s *Session) AddDoubleAddon() models.Result    { return s.apply(true, s.book.AddDoubleAddon) }
func (s *Session) RemoveDoubleAddon() models.Result { return s.apply(true, s.book.RemoveDoubleAddon) }

// EntriesOpen reports whether the entry gate still admits players.
func (s *Session) EntriesOpen() bool {
	return !s.finalized && !s.entriesClosed && !s.gate().Closed(s.clock.State().CurrentLevelIndex)
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot(savedAt time.Time) models.SessionSnapshot {
	return models.SessionSnapshot{
		ID:               s.id,
		Started:          s.started,
		SavedAt:          savedAt,
		Version:          s.version,
		Template:         s.template.Clone(),
		Clock:            s.clock.State(),
		Ledger:           s.ledger,
		BonusWarningSent: s.bonusWarningSent,
		EntriesClosed:    s.entriesClosed,
		Finalized:        s.finalized,
	}
}

// Finalize stops the clock for good and returns the record for the history
// sink. A session can only be finalized once.
func (s *Session) Finalize(at time.Time) (models.HistoryRecord, models.Result) {
	if s.finalized {
		return models.HistoryRecord{}, models.Rejected(rejectedFinalized)
	}
	if s.clock.Running() {
		s.clock.Pause()
	}
	s.finalized = true
	s.version++

	fin := s.Financials()
	state := s.clock.State()
	return models.HistoryRecord{
		ID:             uuid.New(),
		SessionID:      s.id,
		TemplateID:     s.template.ID,
		TemplateName:   s.template.Name,
		Started:        s.started,
		FinalizedAt:    at,
		ElapsedSeconds: state.ElapsedSeconds,
		FinalLevel:     state.CurrentLevelIndex + 1,
		Ledger:         s.ledger,
		Pot:            fin.Pot,
		BubblePrize:    fin.BubblePrize,
		Prizes:         fin.Prizes,
	}, models.Accepted()
}
