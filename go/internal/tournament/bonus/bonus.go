// Package bonus tracks the punctuality bonus: extra chips for players who
// register while the first level is still running.
package bonus

import (
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/schedule"
)

type Kind string

const (
	KindAvailable   Kind = "available"
	KindExpiring    Kind = "expiring"
	KindExpired     Kind = "expired"
	KindUnavailable Kind = "unavailable"
)

const (
	// ExpiringWindowSeconds is when the bonus starts being reported as expiring.
	ExpiringWindowSeconds = 60
	// WarningThresholdSeconds is when the about-to-expire notification fires.
	WarningThresholdSeconds = 30
)

type Status struct {
	Kind            Kind `json:"kind"`
	TimeLeftSeconds int  `json:"time_left_seconds"`
}

// Grantable reports whether a player registering now earns the bonus.
func (s Status) Grantable() bool {
	return s.Kind == KindAvailable || s.Kind == KindExpiring
}

// TimeLeft is the remaining time of the first level, floored at zero.
func TimeLeft(s *schedule.Schedule, state models.ClockState) int {
	return max(s.DurationSeconds(0)-state.ElapsedSeconds, 0)
}

// Evaluate classifies the bonus for the given clock state. Past the first
// level it is always unavailable. A zero length first level keeps the bonus
// available until the clock has started.
func Evaluate(s *schedule.Schedule, state models.ClockState) Status {
	if state.CurrentLevelIndex > 0 {
		return Status{Kind: KindUnavailable}
	}

	left := TimeLeft(s, state)
	switch {
	case left > ExpiringWindowSeconds:
		return Status{Kind: KindAvailable, TimeLeftSeconds: left}
	case left > 0:
		return Status{Kind: KindExpiring, TimeLeftSeconds: left}
	case state.ElapsedSeconds == 0:
		return Status{Kind: KindAvailable}
	default:
		return Status{Kind: KindExpired}
	}
}

// CrossedWarningThreshold reports whether time left moved from above the
// warning threshold to at or below it.
func CrossedWarningThreshold(prevLeft, newLeft int) bool {
	return prevLeft > WarningThresholdSeconds && newLeft <= WarningThresholdSeconds
}
