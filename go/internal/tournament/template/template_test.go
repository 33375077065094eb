package template

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryYAML = `
templates:
  - id: friday
    name: Friday Night
    levels:
      - {small_blind: 25, big_blind: 50, ante: 0, duration_minutes: 20}
      - {small_blind: 50, big_blind: 100, ante: 10, duration_minutes: 20}
    pricing:
      entry_price: 20
      fee_percent: 12.5
      addon_price: 10
      double_addon_price: 15
      initial_points: 10000
      punctuality_bonus_points: 2000
    last_entry_level: 2
    prize_structures:
      - max_players: 10
        prizes:
          - {rank: 1, percentage: 60}
          - {rank: 2, percentage: 40}
`

func validTemplate() models.Template {
	return models.Template{
		ID:   "t",
		Name: "T",
		Levels: []models.Level{
			{SmallBlind: 25, BigBlind: 50, DurationMinutes: 10},
			{SmallBlind: 50, BigBlind: 100, DurationMinutes: 10},
		},
		Pricing: models.Pricing{EntryPrice: 20, FeePercent: decimal.NewFromInt(10)},
		PrizeStructures: []models.PrizeStructure{
			{MaxPlayers: 10, Prizes: prizes("60", "40")},
		},
	}
}

func TestPresetsAreValid(t *testing.T) {
	lib := Builtin()
	assert.Equal(t, 4, lib.Len())

	for _, p := range Presets() {
		assert.NoError(t, Validate(p), p.ID)
	}

	ids := make([]string, 0, lib.Len())
	for _, tmpl := range lib.List() {
		ids = append(ids, tmpl.ID)
	}
	assert.Equal(t, []string{PresetDeepStack, PresetHyperTurbo, PresetStandard, PresetTurbo}, ids)
}

func TestLibrary_GetReturnsCopy(t *testing.T) {
	lib := Builtin()
	tmpl, err := lib.Get(PresetTurbo)
	require.NoError(t, err)
	tmpl.Levels[0].BigBlind = 999999

	again, err := lib.Get(PresetTurbo)
	require.NoError(t, err)
	assert.Equal(t, int64(20), again.Levels[0].BigBlind)
	assert.Equal(t, 5, again.Levels[0].DurationMinutes)

	_, err = lib.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad(t *testing.T) {
	lib, err := Load(strings.NewReader(libraryYAML))
	require.NoError(t, err)

	tmpl, err := lib.Get("friday")
	require.NoError(t, err)
	assert.Equal(t, "Friday Night", tmpl.Name)
	require.Len(t, tmpl.Levels, 2)
	assert.Equal(t, int64(10), tmpl.Levels[1].Ante)
	assert.True(t, decimal.RequireFromString("12.5").Equal(tmpl.Pricing.FeePercent))
	require.NotNil(t, tmpl.LastEntryLevel)
	assert.Equal(t, 2, *tmpl.LastEntryLevel)
	require.Len(t, tmpl.PrizeStructures, 1)
	assert.True(t, decimal.NewFromInt(40).Equal(tmpl.PrizeStructures[0].Prizes[1].Percentage))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("templates: [{id: x, unknown_field: 1}]"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("templates:\n  - id: x\n    name: X\n"))
	assert.ErrorContains(t, err, "at least one level is required")

	dup := libraryYAML + strings.TrimPrefix(libraryYAML, "\ntemplates:\n")
	_, err = Load(strings.NewReader(dup))
	assert.ErrorIs(t, err, ErrDuplicateID)

	lib, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, lib.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(libraryYAML), 0o600))

	lib, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	lib := Builtin()
	other, err := NewLibrary(validTemplate(), func() models.Template {
		tmpl := validTemplate()
		tmpl.ID = PresetTurbo
		return tmpl
	}())
	require.NoError(t, err)

	skipped := lib.Merge(other)
	assert.Equal(t, []string{PresetTurbo}, skipped)
	assert.Equal(t, 5, lib.Len())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Template)
		want   string
	}{
		{"valid", func(*models.Template) {}, ""},
		{"no levels", func(t *models.Template) { t.Levels = nil }, "at least one level is required"},
		{"zero duration", func(t *models.Template) { t.Levels[1].DurationMinutes = 0 }, "level 2: duration must be positive"},
		{"decreasing blinds", func(t *models.Template) { t.Levels[1].BigBlind = 40; t.Levels[1].SmallBlind = 20 }, "level 2: blinds decrease"},
		{"small above big", func(t *models.Template) { t.Levels[0].SmallBlind = 60 }, "small blind 60 exceeds big blind 50"},
		{"negative price", func(t *models.Template) { t.Pricing.AddonPrice = -1 }, "addon price must not be negative"},
		{"fee over 100", func(t *models.Template) { t.Pricing.FeePercent = decimal.NewFromInt(101) }, "fee percent 101 is outside 0..100"},
		{"last entry out of range", func(t *models.Template) { n := 3; t.LastEntryLevel = &n }, "last entry level 3 is outside 1..2"},
		{"percentages", func(t *models.Template) { t.PrizeStructures[0].Prizes = prizes("60", "30") }, "percentages sum to 90, want 100"},
		{"zero percentage", func(t *models.Template) { t.PrizeStructures[0].Prizes = prizes("100", "0") }, "rank 2 percentage 0 is outside (0, 100]"},
		{"negative percentage", func(t *models.Template) { t.PrizeStructures[0].Prizes = prizes("110", "-10") }, "rank 2 percentage -10 is outside (0, 100]"},
		{"duplicate rank", func(t *models.Template) { t.PrizeStructures[0].Prizes[1].Rank = 1 }, "rank 1 defined twice"},
		{"duplicate structure", func(t *models.Template) {
			t.PrizeStructures = append(t.PrizeStructures, t.PrizeStructures[0])
		}, "prize structure for 10 players defined twice"},
		{"missing id", func(t *models.Template) { t.ID = "" }, "id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)
			err := Validate(tmpl)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	tmpl := validTemplate()
	tmpl.Name = ""
	tmpl.Levels[0].DurationMinutes = -5
	tmpl.PrizeStructures[0].Prizes = nil

	err := Validate(tmpl)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "level 1: duration must be positive")
	assert.Contains(t, msg, "has no prizes")
}
