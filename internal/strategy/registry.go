package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pggsim/internal/game"
)

var (
	ErrStrategyExists   = errors.New("strategy already registered")
	ErrStrategyNotFound = errors.New("strategy not found")
)

// Spec describes how to build agents of one strategy.
type Spec struct {
	ID          game.StrategyID
	Description string
	Caps        game.Capability
	New         func() Policy
}

// Registry maps strategy ids to zero-argument policy constructors.
type Registry struct {
	mu sync.RWMutex
	m  map[game.StrategyID]Spec
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[game.StrategyID]Spec)}
}

// Builtin returns a registry holding the fixed-action strategies, the
// leading eight and the local reputation strategy.
func Builtin() *Registry {
	r := NewRegistry()
	for _, spec := range builtinSpecs() {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinSpecs() []Spec {
	specs := []Spec{
		{ID: "cooperator", Description: "always cooperates", New: constant(game.Cooperate)},
		{ID: "defector", Description: "always defects", New: constant(game.Defect)},
		{ID: "nonparticipant", Description: "always abstains", New: constant(game.Abstain)},
		{ID: "punisher", Description: "always cooperates and punishes defectors", New: constant(game.Punish)},
		{
			ID:          "local-reputation",
			Description: "best response to locally scored co-players",
			Caps:        game.TracksHistory,
			New:         func() Policy { return NewLocalReputation() },
		},
	}
	for _, rule := range LeadingEight {
		rule := rule
		specs = append(specs, Spec{
			ID:          rule.ID,
			Description: fmt.Sprintf("leading eight d[G][B][C]=%s d[B][B][C]=%s d[B][B][D]=%s", rule.GoodBadCooperate, rule.BadBadCooperate, rule.BadBadDefect),
			Caps:        game.TracksHistory | game.SeesAll,
			New:         func() Policy { return NewLeadingEight(rule) },
		})
	}
	return specs
}

func constant(action game.Action) func() Policy {
	return func() Policy { return Constant{Action: action} }
}

func (r *Registry) Register(spec Spec) error {
	if spec.ID == "" {
		return errors.New("strategy id is required")
	}
	if spec.New == nil {
		return errors.New("strategy constructor is required")
	}
	if spec.Caps.Has(game.SeesAll) && !spec.Caps.Has(game.TracksHistory) {
		return fmt.Errorf("strategy %s: all-seeing strategies must track history", spec.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.m[spec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrStrategyExists, spec.ID)
	}
	r.m[spec.ID] = spec
	return nil
}

func (r *Registry) Lookup(id game.StrategyID) (Spec, error) {
	r.mu.RLock()
	spec, ok := r.m[id]
	r.mu.RUnlock()

	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrStrategyNotFound, id)
	}
	return spec, nil
}

func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.m))
	for _, spec := range r.m {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// NewAgent builds an agent of the given strategy.
func (r *Registry) NewAgent(id game.StrategyID, player game.PlayerID) (*Agent, error) {
	spec, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	policy := spec.New()
	if spec.Caps.Has(game.TracksHistory) {
		if _, ok := policy.(HistoryTracker); !ok {
			return nil, fmt.Errorf("strategy %s tracks history but its policy cannot", id)
		}
	}
	return &Agent{
		ID:       player,
		Strategy: id,
		Caps:     spec.Caps,
		policy:   policy,
	}, nil
}
