package game

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrNotParticipant       = errors.New("not a participant in the current game")
	ErrInvalidAction        = errors.New("invalid action")
	ErrMissingAction        = errors.New("participant has not submitted an action")
)

// PlayerID identifies an agent for the lifetime of a simulation.
type PlayerID int

// StrategyID names a registered strategy.
type StrategyID string

// Capability flags tell the engine which game results an agent observes.
type Capability uint8

const (
	// TracksHistory agents receive the results of games they took part in.
	TracksHistory Capability = 1 << iota
	// SeesAll agents receive the result of every game.
	SeesAll
)

func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

// Player is the session's view of a participant.
type Player struct {
	ID       PlayerID
	Strategy StrategyID
	Caps     Capability
}

// Entry pairs a participant with the action it submitted.
type Entry struct {
	Player Player
	Action Action
}

// Session is the bookkeeping for one N-person game.
type Session struct {
	params PayoutParams
	round  int
	game   int

	players []Player
	index   map[PlayerID]int
	actions []Action
	counts  Counts
}

func NewSession(params PayoutParams) *Session {
	return &Session{
		params: params,
		index:  make(map[PlayerID]int),
	}
}

// Begin resets the session for a new game. Every participant starts with
// NoAction.
func (s *Session) Begin(players []Player, round, game int) error {
	index := make(map[PlayerID]int, len(players))
	for i, p := range players {
		if _, dup := index[p.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateParticipant, p.ID)
		}
		index[p.ID] = i
	}

	s.round = round
	s.game = game
	s.players = append(s.players[:0], players...)
	s.index = index
	s.actions = make([]Action, len(players))
	s.counts = Counts{}
	return nil
}

// Submit records the action of a participant. A second submission replaces
// the first.
func (s *Session) Submit(id PlayerID, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidAction, action)
	}
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotParticipant, id)
	}
	if prev := s.actions[i]; prev.Valid() {
		s.counts.Add(prev, -1)
	}
	s.actions[i] = action
	s.counts.Add(action, 1)
	return nil
}

func (s *Session) Params() PayoutParams { return s.params }
func (s *Session) Round() int           { return s.round }
func (s *Session) Game() int            { return s.game }
func (s *Session) Counts() Counts       { return s.counts }

// Participants returns the players of the current game in sampling order.
func (s *Session) Participants() []Player {
	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out
}

func (s *Session) Action(id PlayerID) (Action, bool) {
	i, ok := s.index[id]
	if !ok {
		return NoAction, false
	}
	return s.actions[i], true
}

// Entries returns every participant with its submitted action.
func (s *Session) Entries() []Entry {
	out := make([]Entry, len(s.players))
	for i, p := range s.players {
		out[i] = Entry{Player: p, Action: s.actions[i]}
	}
	return out
}

// ComputePayouts evaluates the payoff formula on hypothetical counts with
// this session's parameters.
func (s *Session) ComputePayouts(c Counts) Payouts {
	return ComputePayouts(s.params, c)
}

// Payouts computes the payoffs for the submitted actions. It fails while
// any participant is still missing an action.
func (s *Session) Payouts() (Payouts, error) {
	for i, a := range s.actions {
		if !a.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrMissingAction, s.players[i].ID)
		}
	}
	return ComputePayouts(s.params, s.counts), nil
}

// ParticipantsToNotify returns the history tracking participants that did
// not abstain, in participant order.
func (s *Session) ParticipantsToNotify() []Player {
	out := make([]Player, 0, len(s.players))
	for i, p := range s.players {
		if !p.Caps.Has(TracksHistory) {
			continue
		}
		if s.actions[i] == Abstain {
			continue
		}
		out = append(out, p)
	}
	return out
}
