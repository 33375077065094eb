package orchestrator

import (
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/clock"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/session"
)

// Action is an operator command on the live session.
type Action string

const (
	ActionPlay              Action = "play"
	ActionPause             Action = "pause"
	ActionNextLevel         Action = "next_level"
	ActionPreviousLevel     Action = "previous_level"
	ActionJumpToEndOfLevel  Action = "jump_to_end_of_level"
	ActionAddPlayer         Action = "add_player"
	ActionAddPunctualPlayer Action = "add_punctual_player"
	ActionRemovePlayer      Action = "remove_player"
	ActionAddEntry          Action = "add_entry"
	ActionRemoveEntry       Action = "remove_entry"
	ActionAddAddon          Action = "add_addon"
	ActionRemoveAddon       Action = "remove_addon"
	ActionAddDoubleAddon    Action = "add_double_addon"
	ActionRemoveDoubleAddon Action = "remove_double_addon"
)

// Actions lists every supported action.
var Actions = []Action{
	ActionPlay, ActionPause,
	ActionNextLevel, ActionPreviousLevel, ActionJumpToEndOfLevel,
	ActionAddPlayer, ActionAddPunctualPlayer, ActionRemovePlayer,
	ActionAddEntry, ActionRemoveEntry,
	ActionAddAddon, ActionRemoveAddon,
	ActionAddDoubleAddon, ActionRemoveDoubleAddon,
}

// apply runs the action. ok is false for an unknown action.
func (a Action) apply(s *session.Session) (res models.Result, ok bool) {
	switch a {
	case ActionPlay:
		return s.Play(), true
	case ActionPause:
		return s.Pause(), true
	case ActionNextLevel:
		return s.AdvanceLevel(clock.Forward), true
	case ActionPreviousLevel:
		return s.AdvanceLevel(clock.Backward), true
	case ActionJumpToEndOfLevel:
		return s.JumpToEndOfLevel(), true
	case ActionAddPlayer:
		return s.AddPlayer(false), true
	case ActionAddPunctualPlayer:
		return s.AddPlayer(true), true
	case ActionRemovePlayer:
		return s.RemovePlayer(), true
	case ActionAddEntry:
		return s.AddEntry(), true
	case ActionRemoveEntry:
		return s.RemoveEntry(), true
	case ActionAddAddon:
		return s.AddAddon(), true
	case ActionRemoveAddon:
		return s.RemoveAddon(), true
	case ActionAddDoubleAddon:
		return s.AddDoubleAddon(), true
	case ActionRemoveDoubleAddon:
		return s.RemoveDoubleAddon(), true
	default:
		return models.Result{}, false
	}
}
