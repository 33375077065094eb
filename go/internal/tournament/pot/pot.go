package pot

import (
	"github.com/shopspring/decimal"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

var (
	five    = decimal.NewFromInt(5)
	hundred = decimal.NewFromInt(100)
)

// RoundUpToMultipleOf5 rounds x up to the next multiple of 5 currency units.
func RoundUpToMultipleOf5(x decimal.Decimal) int64 {
	return x.Div(five).Ceil().Mul(five).IntPart()
}

// PercentOf returns amount * percent / 100 without rounding.
func PercentOf(amount int64, percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred)
}

// Fee is the house commission on totalPot, always rounded up to a multiple of 5.
func Fee(totalPot int64, feePercent decimal.Decimal) int64 {
	return RoundUpToMultipleOf5(PercentOf(totalPot, feePercent))
}

// Compute derives the pot breakdown from the ledger and template pricing.
func Compute(l models.Ledger, p models.Pricing) models.PotBreakdown {
	totalPot := int64(l.Entries) * p.EntryPrice
	fee := Fee(totalPot, p.FeePercent)
	addonPot := int64(l.Addons)*p.AddonPrice + int64(l.DoubleAddons)*p.DoubleAddonPrice

	return models.PotBreakdown{
		TotalPot:   totalPot,
		Fee:        fee,
		AddonPot:   addonPot,
		ExtraPot:   p.ExtraPot,
		RealPot:    totalPot - fee + addonPot + p.ExtraPot,
		TotalChips: int64(l.Entries)*p.InitialPoints + int64(l.PunctualityBonusPlayers)*p.PunctualityBonusPoints,
	}
}

// AverageStack is the chips in play per remaining player, 0 with nobody left.
func AverageStack(totalChips int64, players int) int64 {
	if players <= 0 {
		return 0
	}
	return totalChips / int64(players)
}
