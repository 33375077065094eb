package models

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Level is one blind level of a tournament structure.
type Level struct {
	SmallBlind      int64 `json:"small_blind" yaml:"small_blind"`
	BigBlind        int64 `json:"big_blind" yaml:"big_blind"`
	Ante            int64 `json:"ante" yaml:"ante"`
	DurationMinutes int   `json:"duration_minutes" yaml:"duration_minutes"`
}

// Prize is the share of the distributable pot paid to a finishing rank.
type Prize struct {
	Rank       int             `json:"rank" yaml:"rank"`
	Percentage decimal.Decimal `json:"percentage" yaml:"percentage"`
}

// PrizeStructure applies to tournaments with up to MaxPlayers entrants.
type PrizeStructure struct {
	MaxPlayers int     `json:"max_players" yaml:"max_players"`
	Prizes     []Prize `json:"prizes" yaml:"prizes"`
}

// Pricing holds the monetary and chip fields of a template.
type Pricing struct {
	EntryPrice             int64           `json:"entry_price" yaml:"entry_price"`
	FeePercent             decimal.Decimal `json:"fee_percent" yaml:"fee_percent"`
	AddonPrice             int64           `json:"addon_price" yaml:"addon_price"`
	DoubleAddonPrice       int64           `json:"double_addon_price" yaml:"double_addon_price"`
	ExtraPot               int64           `json:"extra_pot" yaml:"extra_pot"`
	BubblePrize            int64           `json:"bubble_prize" yaml:"bubble_prize"`
	InitialPoints          int64           `json:"initial_points" yaml:"initial_points"`
	PunctualityBonusPoints int64           `json:"punctuality_bonus_points" yaml:"punctuality_bonus_points"`
}

// Template is a reusable tournament definition. Sessions copy it on start and
// never write back to it.
type Template struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
	Levels          []Level          `json:"levels" yaml:"levels"`
	Pricing         Pricing          `json:"pricing" yaml:"pricing"`
	LastEntryLevel  *int             `json:"last_entry_level,omitempty" yaml:"last_entry_level,omitempty"`
	PrizeStructures []PrizeStructure `json:"prize_structures" yaml:"prize_structures"`
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	out := t
	out.Levels = slices.Clone(t.Levels)
	if t.LastEntryLevel != nil {
		last := *t.LastEntryLevel
		out.LastEntryLevel = &last
	}
	out.PrizeStructures = make([]PrizeStructure, len(t.PrizeStructures))
	for i, ps := range t.PrizeStructures {
		out.PrizeStructures[i] = PrizeStructure{
			MaxPlayers: ps.MaxPlayers,
			Prizes:     slices.Clone(ps.Prizes),
		}
	}
	return out
}

// Ledger counts entrants and purchases for a session. Entries may exceed
// players because of re-entries.
type Ledger struct {
	Players                 int `json:"players"`
	TotalPlayersEverEntered int `json:"total_players_ever_entered"`
	Entries                 int `json:"entries"`
	Addons                  int `json:"addons"`
	DoubleAddons            int `json:"double_addons"`
	PunctualityBonusPlayers int `json:"punctuality_bonus_players"`
}

// PotBreakdown is the derived money and chip totals of a session.
type PotBreakdown struct {
	TotalPot   int64 `json:"total_pot"`
	Fee        int64 `json:"fee"`
	AddonPot   int64 `json:"addon_pot"`
	ExtraPot   int64 `json:"extra_pot"`
	RealPot    int64 `json:"real_pot"`
	TotalChips int64 `json:"total_chips"`
}

// RankPrize is the amount paid to one finishing rank.
type RankPrize struct {
	Rank   int   `json:"rank"`
	Amount int64 `json:"amount"`
}
