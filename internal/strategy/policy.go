package strategy

import (
	"errors"

	"pggsim/internal/game"
)

var (
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrUndefinedStrategy = errors.New("strategy undefined for reputation state")
)

// Policy decides which action an agent submits in a game.
type Policy interface {
	SelectAction(self game.PlayerID, s *game.Session) (game.Action, error)
}

// HistoryTracker is a policy that learns from finished games.
type HistoryTracker interface {
	Policy
	UpdateHistory(self game.PlayerID, s *game.Session) error
	ClearHistory()
}

// Constant always submits the same action.
type Constant struct {
	Action game.Action
}

func (c Constant) SelectAction(game.PlayerID, *game.Session) (game.Action, error) {
	return c.Action, nil
}
