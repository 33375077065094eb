package payout

import (
	"cmp"
	"slices"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/pot"
)

// SelectStructure picks the structure with the smallest MaxPlayers that still
// covers totalPlayers, falling back to the largest one. ok is false when no
// structures are configured.
func SelectStructure(structures []models.PrizeStructure, totalPlayers int) (models.PrizeStructure, bool) {
	if len(structures) == 0 {
		return models.PrizeStructure{}, false
	}

	best, largest := -1, 0
	for i, ps := range structures {
		if ps.MaxPlayers > structures[largest].MaxPlayers {
			largest = i
		}
		if ps.MaxPlayers >= totalPlayers && (best < 0 || ps.MaxPlayers < structures[best].MaxPlayers) {
			best = i
		}
	}
	if best < 0 {
		best = largest
	}
	return structures[best], true
}

// Distribute splits realPot - bubblePrize across ranks in ascending order.
// Each candidate is the rank's percentage of the fixed base rounded up to a
// multiple of 5, capped at what is left. Payment stops once the pool is used
// up, so rounding can shorten or zero the lower ranks but the total paid never
// exceeds the base.
func Distribute(realPot, bubblePrize int64, structure models.PrizeStructure) []models.RankPrize {
	base := realPot - bubblePrize
	if base <= 0 {
		return nil
	}

	prizes := slices.SortedStableFunc(slices.Values(structure.Prizes), func(a, b models.Prize) int {
		return cmp.Compare(a.Rank, b.Rank)
	})

	out := make([]models.RankPrize, 0, len(prizes))
	remaining := base
	for _, p := range prizes {
		candidate := pot.RoundUpToMultipleOf5(pot.PercentOf(base, p.Percentage))
		if candidate < 0 {
			candidate = 0
		}
		out = append(out, models.RankPrize{Rank: p.Rank, Amount: min(candidate, remaining)})
		remaining -= candidate
		if remaining <= 0 {
			break
		}
	}
	return out
}

// Total sums the amounts of prizes.
func Total(prizes []models.RankPrize) int64 {
	var sum int64
	for _, p := range prizes {
		sum += p.Amount
	}
	return sum
}
