package strategy

import (
	"errors"
	"testing"

	"pggsim/internal/game"
)

func TestBuiltinRegistry(t *testing.T) {
	r := Builtin()
	specs := r.List()
	if len(specs) != 13 {
		t.Fatalf("expected 13 builtin strategies, got %d", len(specs))
	}
	for i := 1; i < len(specs); i++ {
		if specs[i-1].ID >= specs[i].ID {
			t.Fatalf("strategies not sorted: %s before %s", specs[i-1].ID, specs[i].ID)
		}
	}

	agent, err := r.NewAgent("l8-standing", 7)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if agent.ID != 7 || agent.Strategy != "l8-standing" {
		t.Fatalf("unexpected agent: %+v", agent)
	}
	if !agent.Caps.Has(game.SeesAll) || !agent.Caps.Has(game.TracksHistory) {
		t.Fatalf("leading eight agents must see all games: caps=%b", agent.Caps)
	}
	if _, ok := agent.Policy().(*ReputationTable); !ok {
		t.Fatalf("unexpected policy type %T", agent.Policy())
	}

	local, err := r.NewAgent("local-reputation", 8)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if local.Caps != game.TracksHistory {
		t.Fatalf("local reputation caps = %b", local.Caps)
	}
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	spec := Spec{ID: "cooperator", New: constant(game.Cooperate)}
	if err := r.Register(spec); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(spec); !errors.Is(err, ErrStrategyExists) {
		t.Fatalf("expected ErrStrategyExists, got %v", err)
	}
	if _, err := r.Lookup("missing"); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
	if _, err := r.NewAgent("missing", 1); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
	if err := r.Register(Spec{ID: "no-ctor"}); err == nil {
		t.Fatal("expected missing constructor error")
	}
	if err := r.Register(Spec{ID: "watcher", Caps: game.SeesAll, New: constant(game.Cooperate)}); err == nil {
		t.Fatal("expected capability error")
	}
	if err := r.Register(Spec{ID: "pretender", Caps: game.TracksHistory, New: constant(game.Cooperate)}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.NewAgent("pretender", 1); err == nil {
		t.Fatal("expected error for a tracking strategy without a tracking policy")
	}
}

func TestAgentForwardsToPolicy(t *testing.T) {
	r := Builtin()
	s := newGame(t, 1, 2)

	defector, err := r.NewAgent("defector", 1)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	a, err := defector.SelectAction(s)
	if err != nil || a != game.Defect {
		t.Fatalf("defector selected %s, %v", a, err)
	}
	// fixed strategies ignore history
	if err := defector.UpdateHistory(s); err != nil {
		t.Fatalf("update history: %v", err)
	}
	defector.ClearHistory()
}
