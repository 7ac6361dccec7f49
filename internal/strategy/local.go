package strategy

import (
	"math"

	"pggsim/internal/game"
)

// LocalReputation scores co-players from their observed actions and plays
// the best response to the estimated group.
type LocalReputation struct {
	scores map[game.PlayerID]int
}

func NewLocalReputation() *LocalReputation {
	return &LocalReputation{scores: make(map[game.PlayerID]int)}
}

func (l *LocalReputation) Score(id game.PlayerID) int {
	return l.scores[id]
}

// SelectAction treats positively scored co-players as cooperators and
// negatively scored ones as defectors, then picks the action with the
// strictly highest estimated payout. Abstaining is the fallback.
func (l *LocalReputation) SelectAction(self game.PlayerID, s *game.Session) (game.Action, error) {
	var estimate game.Counts
	for _, p := range s.Participants() {
		if p.ID == self {
			continue
		}
		switch score := l.scores[p.ID]; {
		case score > 0:
			estimate.Add(game.Cooperate, 1)
		case score < 0:
			estimate.Add(game.Defect, 1)
		}
	}

	best := game.Abstain
	bestPayout := math.Inf(-1)
	for _, action := range game.Actions {
		estimate.Add(action, 1)
		payout, ok := s.ComputePayouts(estimate)[action]
		estimate.Add(action, -1)
		if !ok || math.IsInf(payout, 0) || math.IsNaN(payout) {
			continue
		}
		if payout > bestPayout {
			best = action
			bestPayout = payout
		}
	}
	return best, nil
}

func (l *LocalReputation) UpdateHistory(self game.PlayerID, s *game.Session) error {
	for _, entry := range s.Entries() {
		if entry.Player.ID == self {
			continue
		}
		switch entry.Action {
		case game.Defect:
			l.scores[entry.Player.ID]--
		case game.Cooperate, game.Punish:
			l.scores[entry.Player.ID]++
		}
	}
	return nil
}

func (l *LocalReputation) ClearHistory() {
	clear(l.scores)
}
