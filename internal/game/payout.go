package game

// PayoutParams are the scalar constants of the public goods game.
type PayoutParams struct {
	// Cost paid by each contributor.
	Cost float64 `json:"cost" yaml:"cost"`
	// Multiplier applied to the pooled contributions (r).
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	// Sigma is the payoff for not participating.
	Sigma float64 `json:"sigma" yaml:"sigma"`
	// Beta is the fine imposed on every defector by each punisher.
	Beta float64 `json:"beta" yaml:"beta"`
	// Gamma is the cost a punisher pays for each defector.
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

func DefaultPayoutParams() PayoutParams {
	return PayoutParams{
		Cost:       1.0,
		Multiplier: 3.0,
		Sigma:      1.0,
		Beta:       1.0,
		Gamma:      0.3,
	}
}

// Counts holds the number of participants per action, indexed by Action.
type Counts [Punish + 1]int

func (c Counts) Of(a Action) int {
	if !a.Valid() {
		return 0
	}
	return c[a]
}

func (c *Counts) Add(a Action, delta int) {
	if !a.Valid() {
		return
	}
	c[a] += delta
}

// Total is the number of participants with a submitted action.
func (c Counts) Total() int {
	n := 0
	for _, a := range Actions {
		n += c[a]
	}
	return n
}

// Payouts maps each action present in a game to the payoff it earned.
type Payouts map[Action]float64

// ComputePayouts applies the public goods payoff formula to a set of action
// counts. Only actions with a positive count appear in the result. When
// nobody contributes or defects no base payout exists and only abstainers
// are paid.
func ComputePayouts(p PayoutParams, c Counts) Payouts {
	cooperators := c.Of(Cooperate)
	defectors := c.Of(Defect)
	abstainers := c.Of(Abstain)
	punishers := c.Of(Punish)

	contributors := cooperators + punishers
	total := contributors + defectors

	out := make(Payouts, 4)
	if abstainers > 0 {
		out[Abstain] = p.Sigma
	}
	if total == 0 {
		return out
	}

	var base float64
	if contributors == 1 && total == 1 {
		// a lone contributor gets the loner payoff instead of its own stake back
		base = p.Sigma
	} else {
		base = float64(contributors) * p.Cost * p.Multiplier / float64(total)
	}

	if defectors > 0 {
		out[Defect] = base - p.Beta*float64(punishers)
	}
	if cooperators > 0 {
		out[Cooperate] = base - p.Cost
	}
	if punishers > 0 {
		out[Punish] = base - p.Cost - p.Gamma*float64(defectors)
	}
	return out
}
