package strategy

import "pggsim/internal/game"

// Agent is one member of the population.
type Agent struct {
	ID       game.PlayerID
	Strategy game.StrategyID
	Caps     game.Capability

	policy Policy
}

func (a *Agent) Player() game.Player {
	return game.Player{ID: a.ID, Strategy: a.Strategy, Caps: a.Caps}
}

func (a *Agent) Policy() Policy { return a.policy }

func (a *Agent) SelectAction(s *game.Session) (game.Action, error) {
	return a.policy.SelectAction(a.ID, s)
}

// UpdateHistory is a no-op for agents that do not track history.
func (a *Agent) UpdateHistory(s *game.Session) error {
	tracker, ok := a.policy.(HistoryTracker)
	if !ok {
		return nil
	}
	return tracker.UpdateHistory(a.ID, s)
}

func (a *Agent) ClearHistory() {
	if tracker, ok := a.policy.(HistoryTracker); ok {
		tracker.ClearHistory()
	}
}
