package clock

import (
	"fmt"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/schedule"
)

const (
	Forward  = 1
	Backward = -1
)

// ResolveLevelIndex maps elapsed seconds to the active level: the first level
// whose cumulative end is beyond elapsed, or the last level once the schedule
// is exhausted. Zero elapsed is always level 0, even for a zero length level.
func ResolveLevelIndex(s *schedule.Schedule, elapsedSeconds int) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	for i := 0; i < s.Len(); i++ {
		if elapsedSeconds < s.CumulativeEndSeconds(i) {
			return i
		}
	}
	return s.LastIndex()
}

// TickResult describes what a single tick changed.
type TickResult struct {
	Ticked    bool
	Advanced  bool
	FromIndex int
	ToIndex   int
}

// Clock owns elapsed time and the current level of a session. It is the only
// writer of models.ClockState.
type Clock struct {
	schedule *schedule.Schedule
	state    models.ClockState
}

// Start creates a paused clock at the beginning of the schedule.
func Start(s *schedule.Schedule) *Clock {
	return &Clock{schedule: s}
}

// Restore rebuilds a clock from persisted state. Negative elapsed time is
// reset to zero, the level is re-resolved from elapsed time and the clock
// comes back paused.
func Restore(s *schedule.Schedule, state models.ClockState) *Clock {
	if state.ElapsedSeconds < 0 {
		state.ElapsedSeconds = 0
	}
	state.CurrentLevelIndex = ResolveLevelIndex(s, state.ElapsedSeconds)
	state.Running = false
	return &Clock{schedule: s, state: state}
}

func (c *Clock) State() models.ClockState { return c.state }

func (c *Clock) Schedule() *schedule.Schedule { return c.schedule }

func (c *Clock) Running() bool { return c.state.Running }

// Exhausted reports whether elapsed time has run past the final level.
func (c *Clock) Exhausted() bool {
	return c.state.ElapsedSeconds >= c.schedule.TotalDurationSeconds()
}

func (c *Clock) Play() models.Result {
	if c.state.Running {
		return models.Rejected("clock is already running")
	}
	c.state.Running = true
	return models.Accepted()
}

func (c *Clock) Pause() models.Result {
	if !c.state.Running {
		return models.Rejected("clock is already paused")
	}
	c.state.Running = false
	return models.Accepted()
}

// Tick advances a running clock by one second. Elapsed time is committed
// before the level is re-resolved, and at most one advance is reported per
// tick however many levels were crossed.
func (c *Clock) Tick() TickResult {
	if !c.state.Running {
		return TickResult{}
	}
	c.state.ElapsedSeconds++

	res := TickResult{Ticked: true, FromIndex: c.state.CurrentLevelIndex, ToIndex: c.state.CurrentLevelIndex}
	next := ResolveLevelIndex(c.schedule, c.state.ElapsedSeconds)
	if next > c.state.CurrentLevelIndex {
		c.state.CurrentLevelIndex = next
		res.Advanced = true
		res.ToIndex = next
	}
	return res
}

// AdvanceManually moves one level forward or back. Moving forward behaves
// like JumpToEndOfCurrentLevel. Moving back restarts the previous level.
func (c *Clock) AdvanceManually(direction int) models.Result {
	switch direction {
	case Forward:
		return c.JumpToEndOfCurrentLevel()
	case Backward:
		if c.state.CurrentLevelIndex <= 0 {
			return models.Rejected("already at the first level")
		}
		target := c.state.CurrentLevelIndex - 1
		c.state.ElapsedSeconds = c.schedule.CumulativeEndSeconds(target - 1)
		c.state.CurrentLevelIndex = target
		return models.Accepted()
	default:
		return models.Rejected(fmt.Sprintf("invalid direction %d", direction))
	}
}

// JumpToEndOfCurrentLevel skips to the next level without ever rewinding
// elapsed time.
func (c *Clock) JumpToEndOfCurrentLevel() models.Result {
	if c.state.CurrentLevelIndex >= c.schedule.LastIndex() {
		return models.Rejected("already at the last level")
	}
	end := c.schedule.CumulativeEndSeconds(c.state.CurrentLevelIndex)
	c.state.ElapsedSeconds = max(c.state.ElapsedSeconds, end)
	c.state.CurrentLevelIndex++
	return models.Accepted()
}

// LevelElapsedSeconds is the time spent in the current level, never negative.
func (c *Clock) LevelElapsedSeconds() int {
	start := c.schedule.CumulativeEndSeconds(c.state.CurrentLevelIndex - 1)
	return max(c.state.ElapsedSeconds-start, 0)
}

// TimeRemainingInLevel counts down to the end of the current level, never negative.
func (c *Clock) TimeRemainingInLevel() int {
	end := c.schedule.CumulativeEndSeconds(c.state.CurrentLevelIndex)
	return max(end-c.state.ElapsedSeconds, 0)
}

// ClockDisplay renders LevelElapsedSeconds as MM:SS.
func (c *Clock) ClockDisplay() string {
	return FormatMMSS(c.LevelElapsedSeconds())
}

// FormatMMSS formats seconds as minutes and seconds. Minutes are not wrapped
// into hours.
func FormatMMSS(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
