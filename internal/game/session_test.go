package game

import (
	"errors"
	"testing"
)

func players(ids ...PlayerID) []Player {
	out := make([]Player, len(ids))
	for i, id := range ids {
		out[i] = Player{ID: id, Strategy: "cooperator"}
	}
	return out
}

func TestSessionBeginRejectsDuplicates(t *testing.T) {
	s := NewSession(DefaultPayoutParams())
	err := s.Begin(players(1, 2, 1), 0, 0)
	if !errors.Is(err, ErrDuplicateParticipant) {
		t.Fatalf("expected ErrDuplicateParticipant, got %v", err)
	}
}

func TestSessionSubmitOverwrites(t *testing.T) {
	s := NewSession(DefaultPayoutParams())
	if err := s.Begin(players(1, 2, 3), 4, 7); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Round() != 4 || s.Game() != 7 {
		t.Fatalf("unexpected indices: round=%d game=%d", s.Round(), s.Game())
	}

	for _, id := range []PlayerID{1, 2, 3} {
		if a, ok := s.Action(id); !ok || a != NoAction {
			t.Fatalf("player %d should start without an action, got %s", id, a)
		}
	}

	if err := s.Submit(1, Cooperate); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Submit(1, Defect); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	c := s.Counts()
	if c.Of(Cooperate) != 0 || c.Of(Defect) != 1 {
		t.Fatalf("counts not updated on resubmit: %v", c)
	}

	if err := s.Submit(9, Cooperate); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if err := s.Submit(2, NoAction); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestSessionPayoutsRequireAllActions(t *testing.T) {
	s := NewSession(DefaultPayoutParams())
	if err := s.Begin(players(1, 2), 0, 0); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.Submit(1, Cooperate); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := s.Payouts(); !errors.Is(err, ErrMissingAction) {
		t.Fatalf("expected ErrMissingAction, got %v", err)
	}
	if err := s.Submit(2, Cooperate); err != nil {
		t.Fatalf("submit: %v", err)
	}
	payouts, err := s.Payouts()
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	if payouts[Cooperate] != 2 {
		t.Fatalf("cooperator payout = %f, want 2", payouts[Cooperate])
	}
}

func TestSessionBeginClearsPreviousGame(t *testing.T) {
	s := NewSession(DefaultPayoutParams())
	if err := s.Begin(players(1, 2), 0, 0); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = s.Submit(1, Defect)
	_ = s.Submit(2, Defect)

	if err := s.Begin(players(3, 4), 0, 1); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Counts().Total() != 0 {
		t.Fatalf("expected cleared counts, got %v", s.Counts())
	}
	if _, ok := s.Action(1); ok {
		t.Fatal("player from the previous game is still a participant")
	}
}

func TestParticipantsToNotify(t *testing.T) {
	s := NewSession(DefaultPayoutParams())
	ps := []Player{
		{ID: 1, Caps: TracksHistory},
		{ID: 2},
		{ID: 3, Caps: TracksHistory | SeesAll},
		{ID: 4, Caps: TracksHistory},
	}
	if err := s.Begin(ps, 0, 0); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = s.Submit(1, Cooperate)
	_ = s.Submit(2, Defect)
	_ = s.Submit(3, Abstain)
	_ = s.Submit(4, Punish)

	got := s.ParticipantsToNotify()
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 4 {
		t.Fatalf("unexpected notify set: %+v", got)
	}
}
