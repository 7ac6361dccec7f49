package evo

import "pggsim/internal/game"

// RoundSnapshot is the state of the engine at the end of a round, taken
// before the population evolves.
type RoundSnapshot struct {
	Round      int
	Strategies []game.StrategyID
	Counts     map[game.StrategyID]int
	AvgPayoffs map[game.StrategyID]float64
	TotalGames map[game.StrategyID]int
	// Fitness is nil when no valid fitness could be computed.
	Fitness []StrategyWeight
	Birth   Thresholds
	Death   Thresholds
}

// FitnessOf returns the normalized fitness of a strategy, or 0 when the
// round had no valid fitness.
func (s RoundSnapshot) FitnessOf(id game.StrategyID) float64 {
	for _, w := range s.Fitness {
		if w.Strategy == id {
			return w.Weight
		}
	}
	return 0
}

// RoundObserver receives a snapshot after every finished round.
type RoundObserver interface {
	ObserveRound(snap RoundSnapshot) error
}

type RoundObserverFunc func(snap RoundSnapshot) error

func (f RoundObserverFunc) ObserveRound(snap RoundSnapshot) error {
	return f(snap)
}
