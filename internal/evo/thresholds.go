package evo

import (
	"errors"
	"fmt"
	"sort"

	"pggsim/internal/game"
)

// Tolerance is the smallest weight or fitness treated as non-zero.
const Tolerance = 1e-3

var ErrInvalidWeights = errors.New("invalid strategy weights")

// StrategyWeight is a population share, or a normalized fitness, of one
// strategy.
type StrategyWeight struct {
	Strategy game.StrategyID `json:"strategy"`
	Weight   float64         `json:"weight"`
}

// Threshold is the cumulative probability bound of one strategy.
type Threshold struct {
	Strategy game.StrategyID `json:"strategy"`
	Value    float64         `json:"value"`
}

// Thresholds are cumulative bounds in selection order. Values never
// decrease and the last one is exactly 1.
type Thresholds []Threshold

func (t Thresholds) Lookup(id game.StrategyID) (float64, bool) {
	for _, th := range t {
		if th.Strategy == id {
			return th.Value, true
		}
	}
	return 0, false
}

func (t Thresholds) Strategies() []game.StrategyID {
	out := make([]game.StrategyID, len(t))
	for i, th := range t {
		out[i] = th.Strategy
	}
	return out
}

// Pick returns the first strategy whose bound covers draw. ok is false
// when no bound does, in which case the last strategy is returned.
func (t Thresholds) Pick(draw float64) (game.StrategyID, bool) {
	for _, th := range t {
		if draw <= th.Value {
			return th.Strategy, true
		}
	}
	if len(t) == 0 {
		return "", false
	}
	return t[len(t)-1].Strategy, false
}

func (t Thresholds) clone() Thresholds {
	out := make(Thresholds, len(t))
	copy(out, t)
	return out
}

// BuildThresholds turns weights into birth and death bounds. Birth bounds
// accumulate the weights in ascending order. Death bounds accumulate them in
// descending order but are assigned to the strategies in ascending order, so
// the weakest strategy holds the widest death interval.
func BuildThresholds(weights []StrategyWeight) (birth, death Thresholds, err error) {
	if len(weights) == 0 {
		return nil, nil, fmt.Errorf("%w: no strategies", ErrInvalidWeights)
	}
	valid := false
	for _, w := range weights {
		if w.Weight > Tolerance {
			valid = true
			break
		}
	}
	if !valid {
		return nil, nil, fmt.Errorf("%w: every weight is at or below %g", ErrInvalidWeights, Tolerance)
	}

	asc := make([]StrategyWeight, len(weights))
	copy(asc, weights)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].Weight < asc[j].Weight })

	desc := make([]StrategyWeight, len(weights))
	copy(desc, weights)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Weight > desc[j].Weight })

	n := len(weights)
	birth = make(Thresholds, n)
	death = make(Thresholds, n)
	birthLimit, deathLimit := 0.0, 0.0
	for i := 0; i < n; i++ {
		if i == n-1 {
			birthLimit, deathLimit = 1.0, 1.0
		} else {
			birthLimit += asc[i].Weight
			deathLimit += desc[i].Weight
		}
		birth[i] = Threshold{Strategy: asc[i].Strategy, Value: birthLimit}
		death[i] = Threshold{Strategy: asc[i].Strategy, Value: deathLimit}
	}
	return birth, death, nil
}
