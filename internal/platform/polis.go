package platform

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"pggsim/internal/config"
	"pggsim/internal/evo"
	"pggsim/internal/game"
	"pggsim/internal/model"
	"pggsim/internal/sim"
	"pggsim/internal/stats"
	"pggsim/internal/storage"
	"pggsim/internal/strategy"
)

type Config struct {
	Store    storage.Store
	Registry *strategy.Registry
	Logger   *zap.Logger
}

type SimulationConfig struct {
	RunID string
	Sim   *config.SimConfig
	// OutputDir receives the per-round CSV tables. Empty disables them.
	OutputDir string
	Observers []evo.RoundObserver
}

type SimulationResult struct {
	RunID           string
	OutputDir       string
	Strategies      []game.StrategyID
	RoundsCompleted int
	Games           int
	FinalCounts     map[game.StrategyID]int
	Record          model.RunRecord
}

// Polis owns the run store and the strategy registry and tracks the runs in
// flight so they can be stopped by id.
type Polis struct {
	store    storage.Store
	registry *strategy.Registry
	log      *zap.Logger

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	registry := cfg.Registry
	if registry == nil {
		registry = strategy.Builtin()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Polis{
		store:    cfg.Store,
		registry: registry,
		log:      log,
		runs:     make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store { return p.store }

func (p *Polis) Registry() *strategy.Registry { return p.registry }

// RunSimulation plays one simulation to completion, writing round tables
// and persisting the run and its rounds.
func (p *Polis) RunSimulation(ctx context.Context, cfg SimulationConfig) (SimulationResult, error) {
	if cfg.RunID == "" {
		return SimulationResult{}, fmt.Errorf("run id is required")
	}
	if cfg.Sim == nil {
		return SimulationResult{}, fmt.Errorf("simulation config is required")
	}
	if !p.Started() {
		return SimulationResult{}, fmt.Errorf("polis is not initialized")
	}
	sc := cfg.Sim
	if err := sc.Resolve(); err != nil {
		return SimulationResult{}, err
	}

	log := p.log.With(zap.String("run_id", cfg.RunID), zap.Int64("seed", sc.Seed))
	if !sc.WeightsNormalized() {
		log.Warn("initial weights do not sum to 1", zap.Float64("sum", sc.WeightSum()))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(cfg.RunID, cancel); err != nil {
		return SimulationResult{}, err
	}
	defer p.unregisterRun(cfg.RunID)

	engine, err := evo.NewEngine(evo.Config{
		Registry:               p.registry,
		Weights:                sc.Weights(),
		PopulationSize:         sc.PopulationSize,
		GroupSize:              sc.GroupSize,
		GamesPerRound:          sc.GamesPerRound,
		Rounds:                 sc.Rounds,
		SelectionStrength:      sc.SelectionStrength,
		MutationRate:           sc.MutationRate,
		Payout:                 sc.Payout,
		ResetPayoffsAfterRound: sc.ResetPayoffs,
		Seed:                   sc.Seed,
		Logger:                 log,
		Observers:              cfg.Observers,
	})
	if err != nil {
		return SimulationResult{}, err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	record := newRunRecord(cfg.RunID, createdAt, sc, cfg.OutputDir)

	if cfg.OutputDir != "" {
		if err := stats.WriteRunConfig(cfg.OutputDir, toRunConfig(record)); err != nil {
			return SimulationResult{}, err
		}
		recorder, err := stats.NewRecorder(cfg.OutputDir, engine.Strategies())
		if err != nil {
			return SimulationResult{}, err
		}
		defer recorder.Close()
		if err := engine.AddObserver(recorder); err != nil {
			return SimulationResult{}, err
		}
	}
	if err := engine.AddObserver(&roundPersister{ctx: runCtx, store: p.store, runID: cfg.RunID}); err != nil {
		return SimulationResult{}, err
	}

	scheduler, err := sim.NewScheduler(engine, engine.Random(), log)
	if err != nil {
		return SimulationResult{}, err
	}
	log.Info("simulation started",
		zap.Int("population", sc.PopulationSize),
		zap.Int("rounds", sc.Rounds),
		zap.Int("strategies", len(sc.Strategies)),
	)
	games, err := scheduler.Run(runCtx)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("run %s: %w", cfg.RunID, err)
	}

	counts := engine.StrategyCounts()
	record.RoundsCompleted = engine.RoundsCompleted()
	record.FinalCounts = make(map[string]int, len(counts))
	for id, n := range counts {
		record.FinalCounts[string(id)] = n
	}
	if err := p.store.SaveRun(ctx, record); err != nil {
		return SimulationResult{}, err
	}
	log.Info("simulation finished", zap.Int("rounds", record.RoundsCompleted), zap.Int("games", games))

	return SimulationResult{
		RunID:           cfg.RunID,
		OutputDir:       cfg.OutputDir,
		Strategies:      engine.Strategies(),
		RoundsCompleted: record.RoundsCompleted,
		Games:           games,
		FinalCounts:     counts,
		Record:          record,
	}, nil
}

// StopRun cancels a run in flight.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel()
	return nil
}

// ActiveRuns returns the ids of the runs in flight.
func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.runs))
	for id := range maps.Keys(p.runs) {
		ids = append(ids, id)
	}
	return ids
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

func newRunRecord(runID, createdAt string, sc *config.SimConfig, outputDir string) model.RunRecord {
	weights := sc.Weights()
	record := model.RunRecord{
		VersionedRecord:   storage.CurrentVersion(),
		ID:                runID,
		CreatedAtUTC:      createdAt,
		Seed:              sc.Seed,
		Strategies:        make([]string, len(weights)),
		Weights:           make([]float64, len(weights)),
		PopulationSize:    sc.PopulationSize,
		GroupSize:         sc.GroupSize,
		GamesPerRound:     sc.GamesPerRound,
		Rounds:            sc.Rounds,
		SelectionStrength: sc.SelectionStrength,
		MutationRate:      sc.MutationRate,
		ResetPayoffs:      sc.ResetPayoffs,
		Payout:            sc.Payout,
		OutputDir:         outputDir,
	}
	for i, w := range weights {
		record.Strategies[i] = string(w.Strategy)
		record.Weights[i] = w.Weight
	}
	return record
}

func toRunConfig(r model.RunRecord) stats.RunConfig {
	return stats.RunConfig{
		RunID:             r.ID,
		CreatedAtUTC:      r.CreatedAtUTC,
		Seed:              r.Seed,
		Strategies:        r.Strategies,
		Weights:           r.Weights,
		PopulationSize:    r.PopulationSize,
		GroupSize:         r.GroupSize,
		GamesPerRound:     r.GamesPerRound,
		Rounds:            r.Rounds,
		SelectionStrength: r.SelectionStrength,
		MutationRate:      r.MutationRate,
		ResetPayoffs:      r.ResetPayoffs,
		Payout:            r.Payout,
	}
}
