package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/bonus"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/payout"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/pot"
)

// Financials is everything derived from the ledger and the template pricing.
type Financials struct {
	Pot          models.PotBreakdown    `json:"pot"`
	AverageStack int64                  `json:"average_stack"`
	BubblePrize  int64                  `json:"bubble_prize"`
	Structure    *models.PrizeStructure `json:"structure,omitempty"`
	Prizes       []models.RankPrize     `json:"prizes"`
}

// Financials returns the derived money figures, recomputing them only when
// the ledger changed since the last call.
func (s *Session) Financials() Financials {
	if s.financials != nil && s.cachedAt == s.ledgerVersion {
		return *s.financials
	}

	fin := Financials{
		Pot:         pot.Compute(s.ledger, s.template.Pricing),
		BubblePrize: s.template.Pricing.BubblePrize,
		Prizes:      []models.RankPrize{},
	}
	fin.AverageStack = pot.AverageStack(fin.Pot.TotalChips, s.ledger.Players)
	if ps, ok := payout.SelectStructure(s.template.PrizeStructures, s.ledger.TotalPlayersEverEntered); ok {
		fin.Structure = &ps
		if prizes := payout.Distribute(fin.Pot.RealPot, fin.BubblePrize, ps); prizes != nil {
			fin.Prizes = prizes
		}
	}

	s.financials = &fin
	s.cachedAt = s.ledgerVersion
	return fin
}

// View is the read model rendered by clients.
type View struct {
	SessionID    uuid.UUID            `json:"session_id"`
	TemplateID   string               `json:"template_id"`
	TemplateName string               `json:"template_name"`
	Status       models.SessionStatus `json:"status"`
	Version      uint64               `json:"version"`
	Started      time.Time            `json:"started"`

	ElapsedSeconds       int           `json:"elapsed_seconds"`
	ClockDisplay         string        `json:"clock_display"`
	TimeRemainingInLevel int           `json:"time_remaining_in_level"`
	Level                int           `json:"level"`
	TotalLevels          int           `json:"total_levels"`
	CurrentLevel         models.Level  `json:"current_level"`
	NextLevel            *models.Level `json:"next_level,omitempty"`

	EntriesOpen    bool         `json:"entries_open"`
	LastEntryLevel *int         `json:"last_entry_level,omitempty"`
	Bonus          bonus.Status `json:"bonus"`

	Ledger     models.Ledger `json:"ledger"`
	Financials Financials    `json:"financials"`
}

// View builds the read model for the current state.
func (s *Session) View() View {
	sched := s.clock.Schedule()
	state := s.clock.State()
	current, _ := sched.Level(state.CurrentLevelIndex)

	v := View{
		SessionID:            s.id,
		TemplateID:           s.template.ID,
		TemplateName:         s.template.Name,
		Status:               s.Status(),
		Version:              s.version,
		Started:              s.started,
		ElapsedSeconds:       state.ElapsedSeconds,
		ClockDisplay:         s.clock.ClockDisplay(),
		TimeRemainingInLevel: s.clock.TimeRemainingInLevel(),
		Level:                state.CurrentLevelIndex + 1,
		TotalLevels:          sched.Len(),
		CurrentLevel:         current,
		EntriesOpen:          s.EntriesOpen(),
		Bonus:                s.Bonus(),
		Ledger:               s.ledger,
		Financials:           s.Financials(),
	}
	if next, ok := sched.Level(state.CurrentLevelIndex + 1); ok {
		v.NextLevel = &next
	}
	if s.template.LastEntryLevel != nil {
		last := *s.template.LastEntryLevel
		v.LastEntryLevel = &last
	}
	return v
}
