package strategy

import (
	"fmt"

	"pggsim/internal/game"
)

// ReputationTable is a conditional strategy driven by two lookup tables:
// the strategy p[own][group] -> action and the assessment dynamics
// d[own][group][action] -> reputation. Both start empty; an unset cell
// reads back as undefined.
type ReputationTable struct {
	strategy [2][2]game.Action
	dynamics [2][2][4]game.Reputation

	ledger            map[game.PlayerID]game.Reputation
	defaultRep        game.Reputation
	badThreshold      float64
	punishWithAbstain bool

	// derivesBadBad keeps p[bad][bad] consistent with the bad/bad dynamics.
	derivesBadBad bool
}

func NewReputationTable() *ReputationTable {
	return &ReputationTable{
		ledger:            make(map[game.PlayerID]game.Reputation),
		defaultRep:        game.Good,
		punishWithAbstain: true,
	}
}

func repIndex(r game.Reputation) (int, bool) {
	switch r {
	case game.Good:
		return 0, true
	case game.Bad:
		return 1, true
	}
	return 0, false
}

func actionIndex(a game.Action) (int, bool) {
	if !a.Valid() {
		return 0, false
	}
	return int(a) - 1, true
}

// SetStrategy stores the action for a reputation pair. Defection is stored
// as abstention when the table punishes by abstaining.
func (t *ReputationTable) SetStrategy(own, group game.Reputation, action game.Action) {
	o, ok1 := repIndex(own)
	g, ok2 := repIndex(group)
	if !ok1 || !ok2 {
		return
	}
	if t.punishWithAbstain && action == game.Defect {
		action = game.Abstain
	}
	t.strategy[o][g] = action
}

func (t *ReputationTable) Strategy(own, group game.Reputation) (game.Action, bool) {
	o, ok1 := repIndex(own)
	g, ok2 := repIndex(group)
	if !ok1 || !ok2 {
		return game.NoAction, false
	}
	action := t.strategy[o][g]
	return action, action.Valid()
}

func (t *ReputationTable) SetDynamics(own, group game.Reputation, action game.Action, next game.Reputation) {
	o, ok1 := repIndex(own)
	g, ok2 := repIndex(group)
	a, ok3 := actionIndex(action)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	t.dynamics[o][g][a] = next
	if t.derivesBadBad {
		t.deriveBadBad()
	}
}

func (t *ReputationTable) Dynamics(own, group game.Reputation, action game.Action) (game.Reputation, bool) {
	o, ok1 := repIndex(own)
	g, ok2 := repIndex(group)
	a, ok3 := actionIndex(action)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	rep := t.dynamics[o][g][a]
	return rep, rep.Valid()
}

// deriveBadBad cooperates with a bad group while bad only when that is the
// one action the dynamics reward.
func (t *ReputationTable) deriveBadBad() {
	coop, _ := t.Dynamics(game.Bad, game.Bad, game.Cooperate)
	defect, _ := t.Dynamics(game.Bad, game.Bad, game.Defect)
	if coop == game.Good && defect == game.Bad {
		t.SetStrategy(game.Bad, game.Bad, game.Cooperate)
		return
	}
	t.SetStrategy(game.Bad, game.Bad, game.Defect)
}

// DefectAction is the action this table uses to punish.
func (t *ReputationTable) DefectAction() game.Action {
	if t.punishWithAbstain {
		return game.Abstain
	}
	return game.Defect
}

func (t *ReputationTable) PunishWithAbstain() bool { return t.punishWithAbstain }

// SetPunishWithAbstain switches the punishing action. Cells already holding
// the old punishing action are rewritten to the new one, so the table and
// DefectAction always agree.
func (t *ReputationTable) SetPunishWithAbstain(v bool) {
	if v == t.punishWithAbstain {
		return
	}
	from := t.DefectAction()
	t.punishWithAbstain = v
	to := t.DefectAction()
	for o := range t.strategy {
		for g := range t.strategy[o] {
			if t.strategy[o][g] == from {
				t.strategy[o][g] = to
			}
		}
	}
}

func (t *ReputationTable) BadThreshold() float64         { return t.badThreshold }
func (t *ReputationTable) SetBadThreshold(theta float64) { t.badThreshold = theta }

func (t *ReputationTable) SetDefaultReputation(rep game.Reputation) {
	if rep.Valid() {
		t.defaultRep = rep
	}
}

// Reputation returns the recorded reputation of a player, or the default
// for players never assessed.
func (t *ReputationTable) Reputation(id game.PlayerID) game.Reputation {
	if rep, ok := t.ledger[id]; ok {
		return rep
	}
	return t.defaultRep
}

// SetReputation records a reputation. An undefined value forgets the player
// so the default applies again.
func (t *ReputationTable) SetReputation(id game.PlayerID, rep game.Reputation) {
	if !rep.Valid() {
		delete(t.ledger, id)
		return
	}
	t.ledger[id] = rep
}

// GroupReputation is bad once the share of bad members exceeds the bad
// threshold. A negative threshold makes every group bad.
func (t *ReputationTable) GroupReputation(group []game.Player) game.Reputation {
	if t.badThreshold < 0 {
		return game.Bad
	}
	total := float64(len(group))
	bad := 0
	for _, p := range group {
		if t.Reputation(p.ID) != game.Bad {
			continue
		}
		bad++
		if float64(bad)/total > t.badThreshold {
			return game.Bad
		}
	}
	return game.Good
}

func (t *ReputationTable) SelectAction(self game.PlayerID, s *game.Session) (game.Action, error) {
	group := t.GroupReputation(s.Participants())
	own := t.Reputation(self)
	action, ok := t.Strategy(own, group)
	if !ok {
		return game.NoAction, fmt.Errorf("%w: own=%s group=%s", ErrUndefinedStrategy, own, group)
	}
	return action, nil
}

// UpdateHistory reassesses every participant of a finished game, the
// observing agent included.
func (t *ReputationTable) UpdateHistory(_ game.PlayerID, s *game.Session) error {
	group := t.GroupReputation(s.Participants())
	for _, entry := range s.Entries() {
		action := entry.Action
		if t.punishWithAbstain && action == game.Abstain {
			action = game.Defect
		}
		if action == game.Punish || action == game.Abstain || !action.Valid() {
			return fmt.Errorf("%w: player %d submitted %s", ErrUnsupportedAction, entry.Player.ID, entry.Action)
		}
		old := t.Reputation(entry.Player.ID)
		next, _ := t.Dynamics(old, group, action)
		t.SetReputation(entry.Player.ID, next)
	}
	return nil
}

func (t *ReputationTable) ClearHistory() {
	clear(t.ledger)
}
