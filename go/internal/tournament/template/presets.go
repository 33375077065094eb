package template

import (
	"github.com/shopspring/decimal"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

// Preset ids.
const (
	PresetHyperTurbo = "hyper-turbo"
	PresetTurbo      = "turbo"
	PresetStandard   = "standard"
	PresetDeepStack  = "deep-stack"
)

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func prizes(percentages ...string) []models.Prize {
	out := make([]models.Prize, len(percentages))
	for i, p := range percentages {
		out[i] = models.Prize{Rank: i + 1, Percentage: pct(p)}
	}
	return out
}

// defaultStructures pays winner-take-all for tiny fields and widens the
// paid places as the field grows.
func defaultStructures() []models.PrizeStructure {
	return []models.PrizeStructure{
		{MaxPlayers: 4, Prizes: prizes("100")},
		{MaxPlayers: 8, Prizes: prizes("65", "35")},
		{MaxPlayers: 15, Prizes: prizes("50", "30", "20")},
		{MaxPlayers: 35, Prizes: prizes("40", "25", "17", "11", "7")},
		{MaxPlayers: 500, Prizes: prizes("30", "20", "13", "10", "8", "6", "5", "4", "2.5", "1.5")},
	}
}

func defaultPricing() models.Pricing {
	return models.Pricing{
		EntryPrice:             20,
		FeePercent:             pct("10"),
		AddonPrice:             10,
		DoubleAddonPrice:       15,
		InitialPoints:          10000,
		PunctualityBonusPoints: 2000,
	}
}

func levels(minutes int, blinds ...[3]int64) []models.Level {
	out := make([]models.Level, len(blinds))
	for i, b := range blinds {
		out[i] = models.Level{SmallBlind: b[0], BigBlind: b[1], Ante: b[2], DurationMinutes: minutes}
	}
	return out
}

func lastEntry(n int) *int { return &n }

// Presets returns fresh copies of the builtin templates.
func Presets() []models.Template {
	return []models.Template{
		{
			ID:          PresetHyperTurbo,
			Name:        "Hyper Turbo",
			Description: "3 minute levels",
			Levels: levels(3,
				[3]int64{10, 20, 0}, [3]int64{15, 30, 0}, [3]int64{25, 50, 5}, [3]int64{50, 100, 10},
				[3]int64{75, 150, 15}, [3]int64{100, 200, 25}, [3]int64{150, 300, 40}, [3]int64{200, 400, 50},
				[3]int64{300, 600, 75}, [3]int64{500, 1000, 100}, [3]int64{750, 1500, 150}, [3]int64{1000, 2000, 250},
			),
			Pricing:         defaultPricing(),
			LastEntryLevel:  lastEntry(4),
			PrizeStructures: defaultStructures(),
		},
		{
			ID:          PresetTurbo,
			Name:        "Turbo",
			Description: "5 minute levels",
			Levels: levels(5,
				[3]int64{10, 20, 0}, [3]int64{15, 30, 0}, [3]int64{25, 50, 0}, [3]int64{50, 100, 10},
				[3]int64{75, 150, 15}, [3]int64{100, 200, 20}, [3]int64{150, 300, 30}, [3]int64{200, 400, 40},
				[3]int64{300, 600, 60}, [3]int64{400, 800, 80}, [3]int64{600, 1200, 120}, [3]int64{800, 1600, 160},
				[3]int64{1000, 2000, 200}, [3]int64{1500, 3000, 300}, [3]int64{2000, 4000, 400},
			),
			Pricing:         defaultPricing(),
			LastEntryLevel:  lastEntry(6),
			PrizeStructures: defaultStructures(),
		},
		{
			ID:          PresetStandard,
			Name:        "Standard",
			Description: "10 minute levels",
			Levels: levels(10,
				[3]int64{25, 50, 0}, [3]int64{50, 100, 0}, [3]int64{75, 150, 0}, [3]int64{100, 200, 25},
				[3]int64{150, 300, 30}, [3]int64{200, 400, 50}, [3]int64{300, 600, 75}, [3]int64{400, 800, 100},
				[3]int64{600, 1200, 150}, [3]int64{800, 1600, 200}, [3]int64{1000, 2000, 250}, [3]int64{1500, 3000, 375},
				[3]int64{2000, 4000, 500}, [3]int64{3000, 6000, 750}, [3]int64{4000, 8000, 1000}, [3]int64{6000, 12000, 1500},
				[3]int64{8000, 16000, 2000}, [3]int64{10000, 20000, 2500},
			),
			Pricing:         defaultPricing(),
			LastEntryLevel:  lastEntry(6),
			PrizeStructures: defaultStructures(),
		},
		{
			ID:          PresetDeepStack,
			Name:        "Deep Stack",
			Description: "15 minute levels",
			Levels: levels(15,
				[3]int64{25, 50, 0}, [3]int64{50, 100, 0}, [3]int64{75, 150, 0}, [3]int64{100, 200, 0},
				[3]int64{150, 300, 25}, [3]int64{200, 400, 50}, [3]int64{250, 500, 50}, [3]int64{300, 600, 75},
				[3]int64{400, 800, 100}, [3]int64{500, 1000, 100}, [3]int64{600, 1200, 150}, [3]int64{800, 1600, 200},
				[3]int64{1000, 2000, 250}, [3]int64{1500, 3000, 300}, [3]int64{2000, 4000, 500}, [3]int64{3000, 6000, 600},
				[3]int64{4000, 8000, 1000}, [3]int64{5000, 10000, 1000}, [3]int64{6000, 12000, 1500}, [3]int64{8000, 16000, 2000},
			),
			Pricing: func() models.Pricing {
				p := defaultPricing()
				p.EntryPrice = 30
				p.InitialPoints = 20000
				p.PunctualityBonusPoints = 5000
				return p
			}(),
			LastEntryLevel:  lastEntry(8),
			PrizeStructures: defaultStructures(),
		},
	}
}

// Builtin returns a library holding only the presets.
func Builtin() *Library {
	lib, err := NewLibrary(Presets()...)
	if err != nil {
		panic("builtin templates are invalid: " + err.Error())
	}
	return lib
}
