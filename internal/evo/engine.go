package evo

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"pggsim/internal/game"
	"pggsim/internal/rng"
	"pggsim/internal/strategy"
)

// Config describes one evolutionary public goods simulation.
type Config struct {
	Registry *strategy.Registry
	// Weights are the initial population shares. Their order breaks ties
	// when thresholds are sorted.
	Weights []StrategyWeight

	PopulationSize    int
	GroupSize         int
	GamesPerRound     int
	Rounds            int
	SelectionStrength float64
	MutationRate      float64
	Payout            game.PayoutParams

	// ResetPayoffsAfterRound clears strategy statistics and agent histories
	// at every round boundary.
	ResetPayoffsAfterRound bool

	// Random is the single source of randomness. When nil a source seeded
	// with Seed is created.
	Random rng.Source
	Seed   int64

	Logger    *zap.Logger
	Observers []RoundObserver
}

// Engine owns the population and evolves it between rounds of games.
type Engine struct {
	cfg Config
	log *zap.Logger
	rnd rng.Source

	strategies []game.StrategyID
	birth      Thresholds
	death      Thresholds

	agents    []*strategy.Agent
	byID      map[game.PlayerID]*strategy.Agent
	slots     []int
	trackers  []*strategy.Agent
	allSeeing []*strategy.Agent
	nextID    game.PlayerID

	counts     map[game.StrategyID]int
	avgPayoffs map[game.StrategyID]float64
	totalGames map[game.StrategyID]int

	session      *game.Session
	participants []*strategy.Agent

	roundsCompleted int
	roundGames      int
	err             error
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("strategy registry is required")
	}
	if len(cfg.Weights) == 0 {
		return nil, fmt.Errorf("at least one strategy is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.GroupSize <= 0 || cfg.GroupSize > cfg.PopulationSize {
		return nil, fmt.Errorf("group size must be in [1, population size]")
	}
	if cfg.GamesPerRound <= 0 {
		return nil, fmt.Errorf("games per round must be > 0")
	}
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("rounds must be >= 0")
	}
	if cfg.SelectionStrength < 0 || cfg.SelectionStrength > 1 {
		return nil, fmt.Errorf("selection strength must be in [0, 1]")
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return nil, fmt.Errorf("mutation rate must be in [0, 1]")
	}

	seen := make(map[game.StrategyID]bool, len(cfg.Weights))
	strategies := make([]game.StrategyID, 0, len(cfg.Weights))
	for i, w := range cfg.Weights {
		if _, err := cfg.Registry.Lookup(w.Strategy); err != nil {
			return nil, fmt.Errorf("strategy at index %d: %w", i, err)
		}
		if seen[w.Strategy] {
			return nil, fmt.Errorf("strategy %s listed twice", w.Strategy)
		}
		if w.Weight < 0 {
			return nil, fmt.Errorf("%w: weight of %s must be >= 0", ErrInvalidWeights, w.Strategy)
		}
		seen[w.Strategy] = true
		strategies = append(strategies, w.Strategy)
	}
	slices.Sort(strategies)

	if cfg.Random == nil {
		cfg.Random = rng.New(cfg.Seed)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	e := &Engine{
		cfg:        cfg,
		log:        cfg.Logger,
		rnd:        cfg.Random,
		strategies: strategies,
		byID:       make(map[game.PlayerID]*strategy.Agent, cfg.PopulationSize),
		counts:     make(map[game.StrategyID]int, len(strategies)),
		session:    game.NewSession(cfg.Payout),
	}
	if err := e.UpdateEvolutionThresholds(cfg.Weights); err != nil {
		return nil, fmt.Errorf("initial thresholds: %w", err)
	}
	e.log.Debug("initial thresholds",
		zap.Any("birth", e.birth),
		zap.Any("death", e.death),
	)
	e.resetPayoffs()
	if err := e.createAgents(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) createAgents() error {
	for _, id := range e.strategies {
		e.counts[id] = 0
	}
	e.agents = make([]*strategy.Agent, e.cfg.PopulationSize)
	e.slots = make([]int, e.cfg.PopulationSize)
	for i := range e.agents {
		id := e.SelectRandomStrategy(e.birth)
		agent, err := e.newAgent(id)
		if err != nil {
			return err
		}
		e.agents[i] = agent
		e.slots[i] = i
		e.track(agent)
		e.counts[id]++
	}
	return nil
}

func (e *Engine) newAgent(id game.StrategyID) (*strategy.Agent, error) {
	agent, err := e.cfg.Registry.NewAgent(id, e.nextID)
	if err != nil {
		return nil, fmt.Errorf("create %s agent: %w", id, err)
	}
	e.nextID++
	e.byID[agent.ID] = agent
	return agent, nil
}

func (e *Engine) track(agent *strategy.Agent) {
	if !agent.Caps.Has(game.TracksHistory) {
		return
	}
	e.trackers = append(e.trackers, agent)
	if agent.Caps.Has(game.SeesAll) {
		e.allSeeing = append(e.allSeeing, agent)
	}
}

func (e *Engine) untrack(agent *strategy.Agent) {
	delete(e.byID, agent.ID)
	if !agent.Caps.Has(game.TracksHistory) {
		return
	}
	e.trackers = slices.DeleteFunc(e.trackers, func(a *strategy.Agent) bool { return a == agent })
	e.allSeeing = slices.DeleteFunc(e.allSeeing, func(a *strategy.Agent) bool { return a == agent })
}

// Done reports whether every configured round has finished.
func (e *Engine) Done() bool {
	return e.roundsCompleted >= e.cfg.Rounds
}

// Err returns the error that stopped the engine from starting a game.
func (e *Engine) Err() error {
	return e.err
}

// OnRoundGameBegin samples the participants of the next game. It returns
// false once the configured number of rounds has been played.
func (e *Engine) OnRoundGameBegin() bool {
	if e.Done() || e.err != nil {
		return false
	}

	e.participants = e.selectParticipants()
	players := make([]game.Player, len(e.participants))
	for i, agent := range e.participants {
		players[i] = agent.Player()
	}
	if err := e.session.Begin(players, e.roundsCompleted, e.roundGames); err != nil {
		e.err = fmt.Errorf("begin game: %w", err)
		return false
	}
	e.log.Debug("new game",
		zap.Int("round", e.roundsCompleted),
		zap.Int("game", e.roundGames),
	)
	return true
}

// selectParticipants shuffles the slot indices from a sorted start so the
// draw depends only on the random stream.
func (e *Engine) selectParticipants() []*strategy.Agent {
	slices.Sort(e.slots)
	e.rnd.Shuffle(len(e.slots), func(i, j int) {
		e.slots[i], e.slots[j] = e.slots[j], e.slots[i]
	})
	out := make([]*strategy.Agent, e.cfg.GroupSize)
	for i := range out {
		out[i] = e.agents[e.slots[i]]
	}
	return out
}

// TakeAction registers a participant's action for the current game.
func (e *Engine) TakeAction(id game.PlayerID, action game.Action) error {
	if err := e.session.Submit(id, action); err != nil {
		return err
	}
	e.log.Debug("action", zap.Int("player", int(id)), zap.Stringer("action", action))
	return nil
}

// OnRoundGameEnd settles the current game, passes its result to the agents
// that observe it and evolves the population when the round is complete.
func (e *Engine) OnRoundGameEnd() error {
	if e.err != nil {
		return e.err
	}
	if err := e.UpdateStrategyStats(e.session); err != nil {
		return err
	}

	for _, agent := range e.notifySet() {
		if err := agent.UpdateHistory(e.session); err != nil {
			return fmt.Errorf("update history of player %d (%s): %w", agent.ID, agent.Strategy, err)
		}
	}

	e.roundGames++
	if e.roundGames >= e.cfg.GamesPerRound {
		return e.finishRound()
	}
	return nil
}

// notifySet lists every all-seeing agent followed by the participants that
// should learn the result, without repeats.
func (e *Engine) notifySet() []*strategy.Agent {
	out := make([]*strategy.Agent, 0, len(e.allSeeing)+e.cfg.GroupSize)
	seen := make(map[game.PlayerID]bool, cap(out))
	for _, agent := range e.allSeeing {
		seen[agent.ID] = true
		out = append(out, agent)
	}
	for _, p := range e.session.ParticipantsToNotify() {
		if seen[p.ID] {
			continue
		}
		agent, ok := e.byID[p.ID]
		if !ok {
			continue
		}
		seen[p.ID] = true
		out = append(out, agent)
	}
	return out
}

// UpdateStrategyStats folds the payouts of a finished game into the running
// averages of the participating strategies.
func (e *Engine) UpdateStrategyStats(s *game.Session) error {
	payouts, err := s.Payouts()
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	for _, entry := range s.Entries() {
		id := entry.Player.Strategy
		n := e.totalGames[id] + 1
		e.totalGames[id] = n
		e.avgPayoffs[id] = RunningAverage(e.avgPayoffs[id], n, payouts[entry.Action])
	}
	if ce := e.log.Check(zap.DebugLevel, "game payouts"); ce != nil {
		fields := make([]zap.Field, 0, len(payouts))
		for _, a := range game.Actions {
			if v, ok := payouts[a]; ok {
				fields = append(fields, zap.Float64(a.String(), v))
			}
		}
		ce.Write(fields...)
	}
	return nil
}

func (e *Engine) finishRound() error {
	snap := RoundSnapshot{
		Round:      e.roundsCompleted,
		Strategies: slices.Clone(e.strategies),
		Counts:     maps.Clone(e.counts),
		AvgPayoffs: maps.Clone(e.avgPayoffs),
		TotalGames: maps.Clone(e.totalGames),
	}

	fitness, ok := e.CalculateStrategyFitness()
	if ok {
		if err := e.UpdateEvolutionThresholds(fitness); err != nil {
			e.log.Warn("thresholds not updated", zap.Int("round", snap.Round), zap.Error(err))
		}
		snap.Fitness = fitness
	} else {
		e.log.Warn("no valid fitness; thresholds not updated", zap.Int("round", snap.Round))
	}
	snap.Birth = e.birth.clone()
	snap.Death = e.death.clone()

	if err := e.EvolvePopulation(); err != nil {
		return fmt.Errorf("evolve population: %w", err)
	}

	if e.cfg.ResetPayoffsAfterRound {
		e.resetPayoffs()
		for _, agent := range e.trackers {
			agent.ClearHistory()
		}
	}

	e.roundGames = 0
	e.roundsCompleted++

	e.log.Debug("round finished",
		zap.Int("round", snap.Round),
		zap.Any("counts", snap.Counts),
	)
	for _, obs := range e.cfg.Observers {
		if err := obs.ObserveRound(snap); err != nil {
			return fmt.Errorf("observe round %d: %w", snap.Round, err)
		}
	}
	return nil
}

func (e *Engine) resetPayoffs() {
	e.avgPayoffs = make(map[game.StrategyID]float64, len(e.strategies))
	e.totalGames = make(map[game.StrategyID]int, len(e.strategies))
	for _, id := range e.strategies {
		e.avgPayoffs[id] = 0
		e.totalGames[id] = 0
	}
}

// CalculateStrategyFitness returns the normalized fitness of every strategy
// in birth threshold order.
func (e *Engine) CalculateStrategyFitness() ([]StrategyWeight, bool) {
	return Fitness(e.birth.Strategies(), e.avgPayoffs, e.cfg.SelectionStrength)
}

// UpdateEvolutionThresholds rebuilds the birth and death thresholds. The
// weights must name every engine strategy exactly once. On error the
// previous thresholds stay in place.
func (e *Engine) UpdateEvolutionThresholds(weights []StrategyWeight) error {
	if err := e.checkWeightKeys(weights); err != nil {
		return err
	}
	birth, death, err := BuildThresholds(weights)
	if err != nil {
		return err
	}
	e.birth = birth
	e.death = death
	return nil
}

func (e *Engine) checkWeightKeys(weights []StrategyWeight) error {
	if len(weights) != len(e.strategies) {
		return fmt.Errorf("%w: %d weights for %d strategies", ErrInvalidWeights, len(weights), len(e.strategies))
	}
	seen := make(map[game.StrategyID]bool, len(weights))
	for _, w := range weights {
		if _, known := slices.BinarySearch(e.strategies, w.Strategy); !known {
			return fmt.Errorf("%w: unknown strategy %s", ErrInvalidWeights, w.Strategy)
		}
		if seen[w.Strategy] {
			return fmt.Errorf("%w: strategy %s weighted twice", ErrInvalidWeights, w.Strategy)
		}
		seen[w.Strategy] = true
	}
	return nil
}

// SelectRandomStrategy draws a strategy from the thresholds. With the
// mutation rate's probability the thresholds are ignored and the strategy
// is drawn uniformly.
func (e *Engine) SelectRandomStrategy(thresholds Thresholds) game.StrategyID {
	if e.rnd.Float64() > e.cfg.MutationRate {
		id, ok := thresholds.Pick(e.rnd.Float64())
		if !ok {
			e.log.Warn("thresholds do not cover draw", zap.Any("thresholds", thresholds))
		}
		return id
	}
	k := e.rnd.Intn(len(thresholds))
	id := thresholds[k].Strategy
	e.log.Debug("mutation", zap.String("strategy", string(id)))
	return id
}

// EvolvePopulation replaces one agent: a newborn drawn by the birth
// thresholds takes the slot of the first agent of the strategy drawn by the
// death thresholds, or of a random agent when that strategy has died out.
func (e *Engine) EvolvePopulation() error {
	newStrategy := e.SelectRandomStrategy(e.birth)
	newborn, err := e.newAgent(newStrategy)
	if err != nil {
		return err
	}

	oldStrategy := e.SelectRandomStrategy(e.death)
	slot := slices.IndexFunc(e.agents, func(a *strategy.Agent) bool { return a.Strategy == oldStrategy })
	if slot < 0 {
		slot = e.rnd.Intn(len(e.agents))
		e.log.Debug("no agent follows death strategy; replacing a random agent",
			zap.String("strategy", string(oldStrategy)),
			zap.String("replaced", string(e.agents[slot].Strategy)),
		)
		oldStrategy = e.agents[slot].Strategy
	}

	e.untrack(e.agents[slot])
	e.agents[slot] = newborn
	e.track(newborn)

	e.counts[newStrategy]++
	e.counts[oldStrategy]--
	return nil
}

func (e *Engine) Session() *game.Session { return e.session }
func (e *Engine) Random() rng.Source     { return e.rnd }
func (e *Engine) RoundsCompleted() int   { return e.roundsCompleted }
func (e *Engine) Strategies() []game.StrategyID {
	return slices.Clone(e.strategies)
}

// Participants returns the agents of the current game in sampling order.
func (e *Engine) Participants() []*strategy.Agent {
	return slices.Clone(e.participants)
}

// Population returns a copy of the population in slot order.
func (e *Engine) Population() []game.Player {
	out := make([]game.Player, len(e.agents))
	for i, agent := range e.agents {
		out[i] = agent.Player()
	}
	return out
}

func (e *Engine) StrategyCounts() map[game.StrategyID]int {
	return maps.Clone(e.counts)
}

func (e *Engine) AvgPayoffs() map[game.StrategyID]float64 {
	return maps.Clone(e.avgPayoffs)
}

func (e *Engine) TotalGames() map[game.StrategyID]int {
	return maps.Clone(e.totalGames)
}

func (e *Engine) BirthThresholds() Thresholds { return e.birth.clone() }
func (e *Engine) DeathThresholds() Thresholds { return e.death.clone() }

// AddObserver registers an observer for finished rounds.
func (e *Engine) AddObserver(obs RoundObserver) error {
	if obs == nil {
		return fmt.Errorf("observer is required")
	}
	e.cfg.Observers = append(e.cfg.Observers, obs)
	return nil
}
