package clock

import (
	"testing"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedule(t *testing.T, minutes ...int) *schedule.Schedule {
	t.Helper()
	lvls := make([]models.Level, len(minutes))
	for i, m := range minutes {
		lvls[i] = models.Level{SmallBlind: int64(25 << i), BigBlind: int64(50 << i), DurationMinutes: m}
	}
	s, err := schedule.New(lvls)
	require.NoError(t, err)
	return s
}

func TestResolveLevelIndex(t *testing.T) {
	s := newSchedule(t, 1, 2, 1)

	cases := []struct {
		elapsed int
		want    int
	}{
		{0, 0},
		{59, 0},
		{60, 1},
		{179, 1},
		{180, 2},
		{239, 2},
		{240, 2},
		{100000, 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveLevelIndex(s, tc.elapsed), "elapsed=%d", tc.elapsed)
	}
}

func TestResolveLevelIndex_ZeroLengthFirstLevel(t *testing.T) {
	s := newSchedule(t, 0, 10)

	assert.Equal(t, 0, ResolveLevelIndex(s, 0))
	assert.Equal(t, 1, ResolveLevelIndex(s, 1))
}

func TestResolveLevelIndex_InRangeAndMonotonic(t *testing.T) {
	schedules := [][]int{{1}, {0}, {1, 0, 2}, {3, 3, 3, 3}, {0, 0, 1}}
	for _, minutes := range schedules {
		s := newSchedule(t, minutes...)
		prev := 0
		for elapsed := 0; elapsed <= s.TotalDurationSeconds()+120; elapsed++ {
			idx := ResolveLevelIndex(s, elapsed)
			require.GreaterOrEqual(t, idx, 0)
			require.LessOrEqual(t, idx, s.LastIndex())
			require.GreaterOrEqual(t, idx, prev, "schedule %v elapsed %d", minutes, elapsed)
			prev = idx
		}
	}
}

func TestPlayPause(t *testing.T) {
	c := Start(newSchedule(t, 1))

	assert.False(t, c.Running())
	assert.False(t, c.Pause().OK)
	assert.True(t, c.Play().OK)
	assert.False(t, c.Play().OK)
	assert.True(t, c.Pause().OK)
}

func TestTick_OnlyWhileRunning(t *testing.T) {
	c := Start(newSchedule(t, 1))

	res := c.Tick()
	assert.False(t, res.Ticked)
	assert.Equal(t, 0, c.State().ElapsedSeconds)

	c.Play()
	res = c.Tick()
	assert.True(t, res.Ticked)
	assert.Equal(t, 1, c.State().ElapsedSeconds)
}

func TestTick_AdvancesOncePerLevelBoundary(t *testing.T) {
	c := Start(newSchedule(t, 1, 1))
	c.Play()

	advances := 0
	for i := 0; i < 60; i++ {
		if c.Tick().Advanced {
			advances++
		}
	}
	assert.Equal(t, 1, advances)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)

	// keeps running past the last level with the index pinned
	for i := 0; i < 120; i++ {
		assert.False(t, c.Tick().Advanced)
	}
	assert.Equal(t, 180, c.State().ElapsedSeconds)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
	assert.True(t, c.Exhausted())
	assert.True(t, c.Running())
}

func TestTick_SkipsZeroLengthLevelsWithOneAdvance(t *testing.T) {
	c := Start(newSchedule(t, 0, 0, 1))
	c.Play()

	res := c.Tick()
	assert.True(t, res.Advanced)
	assert.Equal(t, 0, res.FromIndex)
	assert.Equal(t, 2, res.ToIndex)
}

func TestAdvanceManually(t *testing.T) {
	c := Start(newSchedule(t, 1, 1, 1))

	res := c.AdvanceManually(Backward)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Reason)

	require.True(t, c.AdvanceManually(Forward).OK)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
	assert.Equal(t, 60, c.State().ElapsedSeconds)

	require.True(t, c.AdvanceManually(Forward).OK)
	assert.Equal(t, 2, c.State().CurrentLevelIndex)

	res = c.AdvanceManually(Forward)
	assert.False(t, res.OK)
	assert.Equal(t, 2, c.State().CurrentLevelIndex)

	require.True(t, c.AdvanceManually(Backward).OK)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
	assert.Equal(t, 60, c.State().ElapsedSeconds)

	assert.False(t, c.AdvanceManually(2).OK)
}

func TestJumpToEndOfCurrentLevel_NeverRewinds(t *testing.T) {
	s := newSchedule(t, 1, 1, 1)
	c := Restore(s, models.ClockState{ElapsedSeconds: 30})

	require.True(t, c.JumpToEndOfCurrentLevel().OK)
	assert.Equal(t, 60, c.State().ElapsedSeconds)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)

	c.Play()
	assert.False(t, c.Tick().Advanced)
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
}

func TestClockDisplay(t *testing.T) {
	s := newSchedule(t, 20, 20)

	c := Restore(s, models.ClockState{ElapsedSeconds: 1265})
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
	assert.Equal(t, "01:05", c.ClockDisplay())
	assert.Equal(t, 1135, c.TimeRemainingInLevel())

	c = Start(s)
	assert.Equal(t, "00:00", c.ClockDisplay())
}

// A single 20 minute level, 25 minutes in: still level 0, showing time spent
// in the level.
func TestClockDisplay_SingleLevelOverrun(t *testing.T) {
	s, err := schedule.New([]models.Level{{SmallBlind: 25, BigBlind: 50, Ante: 0, DurationMinutes: 20}})
	require.NoError(t, err)

	c := Restore(s, models.ClockState{ElapsedSeconds: 1500})
	assert.Equal(t, 0, c.State().CurrentLevelIndex)
	assert.Equal(t, "25:00", c.ClockDisplay())
	assert.Equal(t, 0, c.TimeRemainingInLevel())
	assert.True(t, c.Exhausted())
}

func TestRestore_Normalizes(t *testing.T) {
	s := newSchedule(t, 1, 1)

	c := Restore(s, models.ClockState{ElapsedSeconds: -5, Running: true, CurrentLevelIndex: 7})
	assert.Equal(t, models.ClockState{}, c.State())

	c = Restore(s, models.ClockState{ElapsedSeconds: 90, CurrentLevelIndex: 0})
	assert.Equal(t, 1, c.State().CurrentLevelIndex)
}

func TestFormatMMSS(t *testing.T) {
	assert.Equal(t, "00:00", FormatMMSS(-3))
	assert.Equal(t, "00:59", FormatMMSS(59))
	assert.Equal(t, "02:05", FormatMMSS(125))
	assert.Equal(t, "120:00", FormatMMSS(7200))
}
