package evo

import "pggsim/internal/game"

// Fitness maps each strategy's average payoff to 1 - s + s*payoff and
// normalizes the results so they sum to 1. Values below Tolerance count as
// zero. ok is false when the total is below Tolerance.
func Fitness(order []game.StrategyID, avgPayoffs map[game.StrategyID]float64, selectionStrength float64) ([]StrategyWeight, bool) {
	out := make([]StrategyWeight, len(order))
	total := 0.0
	for i, id := range order {
		f := (1 - selectionStrength) + selectionStrength*avgPayoffs[id]
		if f < Tolerance {
			f = 0
		}
		out[i] = StrategyWeight{Strategy: id, Weight: f}
		total += f
	}
	if total < Tolerance {
		return nil, false
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out, true
}

// RunningAverage folds one more observation into a mean over n values,
// where n already counts the new observation.
func RunningAverage(avg float64, n int, value float64) float64 {
	return (avg*float64(n-1) + value) / float64(n)
}
