package strategy

import "pggsim/internal/game"

// Rule fixes the three assessment entries the leading eight leave open.
type Rule struct {
	ID game.StrategyID
	// GoodBadCooperate is d[good][bad][cooperate].
	GoodBadCooperate game.Reputation
	// BadBadCooperate is d[bad][bad][cooperate].
	BadBadCooperate game.Reputation
	// BadBadDefect is d[bad][bad][defect].
	BadBadDefect game.Reputation
	// BadThreshold overrides the table default when set.
	BadThreshold *float64
}

func zeroThreshold() *float64 {
	v := 0.0
	return &v
}

// LeadingEight are the eight canonical rules, one per combination of the
// free entries.
var LeadingEight = []Rule{
	{ID: "l8-ggg", GoodBadCooperate: game.Good, BadBadCooperate: game.Good, BadBadDefect: game.Good},
	{ID: "l8-standing", GoodBadCooperate: game.Good, BadBadCooperate: game.Good, BadBadDefect: game.Bad},
	{ID: "l8-gbg", GoodBadCooperate: game.Good, BadBadCooperate: game.Bad, BadBadDefect: game.Good},
	{ID: "l8-gbb", GoodBadCooperate: game.Good, BadBadCooperate: game.Bad, BadBadDefect: game.Bad},
	{ID: "l8-bgg", GoodBadCooperate: game.Bad, BadBadCooperate: game.Good, BadBadDefect: game.Good},
	{ID: "l8-bgb", GoodBadCooperate: game.Bad, BadBadCooperate: game.Good, BadBadDefect: game.Bad},
	{ID: "l8-bbg", GoodBadCooperate: game.Bad, BadBadCooperate: game.Bad, BadBadDefect: game.Good},
	{ID: "l8-judging", GoodBadCooperate: game.Bad, BadBadCooperate: game.Bad, BadBadDefect: game.Bad, BadThreshold: zeroThreshold()},
}

// NewLeadingEight builds a reputation table with the shared leading-eight
// entries plus the rule's free choices. p[bad][bad] is derived from the
// dynamics on every write.
func NewLeadingEight(rule Rule) *ReputationTable {
	t := NewReputationTable()
	t.derivesBadBad = true

	t.SetStrategy(game.Good, game.Good, game.Cooperate)
	t.SetDynamics(game.Good, game.Good, game.Cooperate, game.Good)

	t.SetDynamics(game.Good, game.Good, game.Defect, game.Bad)
	t.SetDynamics(game.Bad, game.Good, game.Defect, game.Bad)

	t.SetStrategy(game.Good, game.Bad, game.Defect)
	t.SetDynamics(game.Good, game.Bad, game.Defect, game.Good)

	t.SetStrategy(game.Bad, game.Good, game.Cooperate)
	t.SetDynamics(game.Bad, game.Good, game.Cooperate, game.Good)

	t.SetDynamics(game.Good, game.Bad, game.Cooperate, rule.GoodBadCooperate)
	t.SetDynamics(game.Bad, game.Bad, game.Cooperate, rule.BadBadCooperate)
	t.SetDynamics(game.Bad, game.Bad, game.Defect, rule.BadBadDefect)

	if rule.BadThreshold != nil {
		t.SetBadThreshold(*rule.BadThreshold)
	}
	return t
}
