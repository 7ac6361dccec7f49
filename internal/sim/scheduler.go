package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pggsim/internal/game"
	"pggsim/internal/rng"
	"pggsim/internal/strategy"
)

// Hooks is the engine surface the scheduler drives.
type Hooks interface {
	OnRoundGameBegin() bool
	OnRoundGameEnd() error
	Participants() []*strategy.Agent
	TakeAction(id game.PlayerID, action game.Action) error
	Session() *game.Session
	Err() error
}

// Scheduler steps the agents of each game between the begin and end hooks
// until the hooks report the simulation is finished.
type Scheduler struct {
	hooks Hooks
	rnd   rng.Source
	log   *zap.Logger
}

func NewScheduler(hooks Hooks, rnd rng.Source, log *zap.Logger) (*Scheduler, error) {
	if hooks == nil {
		return nil, fmt.Errorf("hooks are required")
	}
	if rnd == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{hooks: hooks, rnd: rnd, log: log}, nil
}

// Run plays games until the hooks stop it, the context ends, or an agent
// fails. It returns the number of games played.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	games := 0
	for {
		if err := ctx.Err(); err != nil {
			return games, err
		}
		if !s.hooks.OnRoundGameBegin() {
			break
		}
		if err := s.step(); err != nil {
			return games, err
		}
		if err := s.hooks.OnRoundGameEnd(); err != nil {
			return games, err
		}
		games++
	}
	if err := s.hooks.Err(); err != nil {
		return games, err
	}
	s.log.Debug("schedule finished", zap.Int("games", games))
	return games, nil
}

// step lets every participant act once, in random order.
func (s *Scheduler) step() error {
	agents := s.hooks.Participants()
	s.rnd.Shuffle(len(agents), func(i, j int) {
		agents[i], agents[j] = agents[j], agents[i]
	})
	session := s.hooks.Session()
	for _, agent := range agents {
		action, err := agent.SelectAction(session)
		if err != nil {
			return fmt.Errorf("player %d (%s): %w", agent.ID, agent.Strategy, err)
		}
		if err := s.hooks.TakeAction(agent.ID, action); err != nil {
			return fmt.Errorf("player %d (%s): %w", agent.ID, agent.Strategy, err)
		}
	}
	return nil
}
