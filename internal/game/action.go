package game

import (
	"fmt"
	"strings"
)

// Action is the move a participant submits in a single game.
type Action uint8

const (
	NoAction Action = iota
	Cooperate
	Defect
	Abstain
	Punish
)

// Actions lists every submittable action in the fixed enumeration order.
var Actions = [...]Action{Cooperate, Defect, Abstain, Punish}

func (a Action) String() string {
	switch a {
	case Cooperate:
		return "cooperate"
	case Defect:
		return "defect"
	case Abstain:
		return "abstain"
	case Punish:
		return "punish"
	case NoAction:
		return "none"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Valid reports whether a is one of the four submittable actions.
func (a Action) Valid() bool {
	return a >= Cooperate && a <= Punish
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cooperate", "c":
		return Cooperate, nil
	case "defect", "d":
		return Defect, nil
	case "abstain", "a", "n":
		return Abstain, nil
	case "punish", "p":
		return Punish, nil
	default:
		return NoAction, fmt.Errorf("unknown action: %q", s)
	}
}

// Reputation is the binary image score assigned by reputation strategies.
// The zero value means "not configured".
type Reputation uint8

const (
	Good Reputation = iota + 1
	Bad
)

// Reputations lists both defined reputations in index order.
var Reputations = [...]Reputation{Good, Bad}

func (r Reputation) String() string {
	switch r {
	case Good:
		return "good"
	case Bad:
		return "bad"
	case 0:
		return "undefined"
	default:
		return fmt.Sprintf("reputation(%d)", uint8(r))
	}
}

func (r Reputation) Valid() bool {
	return r == Good || r == Bad
}
