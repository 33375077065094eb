package entry

import (
	"testing"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestGate_Closed(t *testing.T) {
	cases := []struct {
		name  string
		gate  Gate
		index int
		want  bool
	}{
		{name: "unset never closes", gate: Gate{}, index: 50, want: false},
		{name: "before last entry level", gate: Gate{LastEntryLevel: intPtr(3)}, index: 1, want: false},
		{name: "at last entry level", gate: Gate{LastEntryLevel: intPtr(3)}, index: 2, want: false},
		{name: "after last entry level", gate: Gate{LastEntryLevel: intPtr(3)}, index: 3, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.gate.Closed(tc.index))
		})
	}
}

// Last entry level 3 with the clock on level 4 refuses new entries.
func TestAddEntry_GateClosed(t *testing.T) {
	var ledger models.Ledger
	b := NewBook(&ledger, Gate{LastEntryLevel: intPtr(3)})

	res := b.AddEntry(3)
	assert.False(t, res.OK)
	assert.Contains(t, res.Reason, "closed")
	assert.Equal(t, 0, ledger.Entries)

	res = b.AddPlayer(3, false, false)
	assert.False(t, res.OK)
	assert.Equal(t, models.Ledger{}, ledger)
}

func TestGateStaysClosedForLaterLevels(t *testing.T) {
	var ledger models.Ledger
	b := NewBook(&ledger, Gate{LastEntryLevel: intPtr(2)})
	for idx := 2; idx < 30; idx++ {
		require.False(t, b.AddPlayer(idx, true, true).OK)
		require.False(t, b.AddEntry(idx).OK)
	}
}

func TestAddPlayer(t *testing.T) {
	var ledger models.Ledger
	b := NewBook(&ledger, Gate{})

	require.True(t, b.AddPlayer(0, true, true).OK)
	res := b.AddPlayer(0, true, false)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.Reason)
	require.True(t, b.AddPlayer(0, false, true).OK)

	assert.Equal(t, models.Ledger{
		Players:                 3,
		TotalPlayersEverEntered: 3,
		Entries:                 3,
		PunctualityBonusPlayers: 1,
	}, ledger)
}

func TestRemovals_FloorAtZero(t *testing.T) {
	var ledger models.Ledger
	b := NewBook(&ledger, Gate{LastEntryLevel: intPtr(1)})

	for _, remove := range []func() models.Result{b.RemovePlayer, b.RemoveEntry, b.RemoveAddon, b.RemoveDoubleAddon} {
		res := remove()
		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Reason)
	}
	assert.Equal(t, models.Ledger{}, ledger)

	require.True(t, b.AddPlayer(0, false, false).OK)
	require.True(t, b.AddAddon().OK)
	require.True(t, b.AddDoubleAddon().OK)

	// removals stay allowed once the gate has closed
	assert.True(t, b.RemovePlayer().OK)
	assert.True(t, b.RemoveEntry().OK)
	assert.True(t, b.RemoveAddon().OK)
	assert.True(t, b.RemoveDoubleAddon().OK)
	assert.Equal(t, models.Ledger{TotalPlayersEverEntered: 1}, ledger)
}

func TestSanitize(t *testing.T) {
	got := Sanitize(models.Ledger{Players: 4, TotalPlayersEverEntered: 2, Entries: -1, Addons: -3})
	assert.Equal(t, models.Ledger{Players: 4, TotalPlayersEverEntered: 4}, got)
}
