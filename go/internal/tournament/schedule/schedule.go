package schedule

import (
	"errors"
	"slices"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

// ErrEmptySchedule is returned when a schedule would have no levels.
var ErrEmptySchedule = errors.New("schedule must contain at least one level")

// Schedule is the ordered, immutable list of blind levels of a session.
type Schedule struct {
	levels []models.Level
	// ends[i] is the cumulative end of level i in seconds
	ends []int
}

// New copies levels into a Schedule.
func New(levels []models.Level) (*Schedule, error) {
	if len(levels) == 0 {
		return nil, ErrEmptySchedule
	}

	s := &Schedule{
		levels: slices.Clone(levels),
		ends:   make([]int, len(levels)),
	}
	total := 0
	for i, lvl := range s.levels {
		total += durationSeconds(lvl)
		s.ends[i] = total
	}
	return s, nil
}

func durationSeconds(lvl models.Level) int {
	if lvl.DurationMinutes <= 0 {
		return 0
	}
	return lvl.DurationMinutes * 60
}

// Len returns the number of levels.
func (s *Schedule) Len() int { return len(s.levels) }

// LastIndex returns the index of the final level.
func (s *Schedule) LastIndex() int { return len(s.levels) - 1 }

// Level returns the level at index i. ok is false when i is out of range.
func (s *Schedule) Level(i int) (models.Level, bool) {
	if i < 0 || i >= len(s.levels) {
		return models.Level{}, false
	}
	return s.levels[i], true
}

// Levels returns a copy of all levels.
func (s *Schedule) Levels() []models.Level {
	return slices.Clone(s.levels)
}

// DurationSeconds returns the length of level i, 0 when out of range.
func (s *Schedule) DurationSeconds(i int) int {
	lvl, ok := s.Level(i)
	if !ok {
		return 0
	}
	return durationSeconds(lvl)
}

// TotalDurationSeconds is the sum of every level's duration.
func (s *Schedule) TotalDurationSeconds() int {
	return s.ends[len(s.ends)-1]
}

// CumulativeEndSeconds is the summed duration of levels 0..i inclusive.
// Negative indexes yield 0 and indexes past the end yield the total.
func (s *Schedule) CumulativeEndSeconds(i int) int {
	switch {
	case i < 0:
		return 0
	case i >= len(s.ends):
		return s.TotalDurationSeconds()
	default:
		return s.ends[i]
	}
}
