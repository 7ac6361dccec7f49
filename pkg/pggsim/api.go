package pggsim

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pggsim/internal/config"
	"pggsim/internal/game"
	"pggsim/internal/model"
	"pggsim/internal/platform"
	"pggsim/internal/storage"
	"pggsim/internal/strategy"
)

const defaultDBPath = "pggsim.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
}

type Client struct {
	store storage.Store
	log   *zap.Logger

	mu    sync.Mutex
	polis *platform.Polis
}

type RunSummary struct {
	RunID           string
	Seed            int64
	OutputDir       string
	RoundsCompleted int
	Games           int
	FinalCounts     map[string]int
}

type BatchRequest struct {
	Config     *config.SimConfig
	Replicates int
	Workers    int
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID           string
	CreatedAtUTC    string
	Seed            int64
	Strategies      []string
	PopulationSize  int
	Rounds          int
	RoundsCompleted int
	FinalCounts     map[string]int
}

type RoundsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type StrategyItem struct {
	ID            string
	Description   string
	TracksHistory bool
	SeesAll       bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, log: log}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run plays one simulation. The config is copied; the caller's value is
// left untouched.
func (c *Client) Run(ctx context.Context, cfg *config.SimConfig) (RunSummary, error) {
	if cfg == nil {
		return RunSummary{}, errors.New("simulation config is required")
	}
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return c.run(ctx, p, cfg.Clone(), "")
}

// Batch runs independent replicates with seeds seed, seed+1, ... Each
// replicate writes its tables to its own sub-directory of the output
// directory. Summaries are returned in seed order.
func (c *Client) Batch(ctx context.Context, req BatchRequest) ([]RunSummary, error) {
	if req.Config == nil {
		return nil, errors.New("simulation config is required")
	}
	if req.Replicates <= 0 {
		return nil, errors.New("replicates must be > 0")
	}
	if req.Workers <= 0 {
		req.Workers = 1
	}
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	summaries := make([]RunSummary, req.Replicates)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(req.Workers)
	for i := 0; i < req.Replicates; i++ {
		cfg := req.Config.Clone()
		cfg.Seed = req.Config.Seed + int64(i)
		if cfg.OutputDir != "" {
			cfg.OutputDir = filepath.Join(cfg.OutputDir, fmt.Sprintf("seed-%d", cfg.Seed))
		}
		g.Go(func() error {
			summary, err := c.run(gctx, p, cfg, batchID)
			if err != nil {
				return fmt.Errorf("replicate seed %d: %w", cfg.Seed, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *Client) run(ctx context.Context, p *platform.Polis, cfg *config.SimConfig, batchID string) (RunSummary, error) {
	runID := uuid.NewString()
	if batchID != "" {
		c.log.Debug("replicate started", zap.String("batch_id", batchID), zap.String("run_id", runID), zap.Int64("seed", cfg.Seed))
	}
	result, err := p.RunSimulation(ctx, platform.SimulationConfig{
		RunID:     runID,
		Sim:       cfg,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:           result.RunID,
		Seed:            cfg.Seed,
		OutputDir:       result.OutputDir,
		RoundsCompleted: result.RoundsCompleted,
		Games:           result.Games,
		FinalCounts:     result.Record.FinalCounts,
	}, nil
}

// ActiveRuns returns the ids of the runs this client is playing.
func (c *Client) ActiveRuns(ctx context.Context) ([]string, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	return p.ActiveRuns(), nil
}

// StopRun cancels an active run. Its Run or Batch call returns
// context.Canceled.
func (c *Client) StopRun(ctx context.Context, runID string) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.StopRun(runID)
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	runs, err := p.Store().ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	out := make([]RunItem, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunItem{
			RunID:           r.ID,
			CreatedAtUTC:    r.CreatedAtUTC,
			Seed:            r.Seed,
			Strategies:      r.Strategies,
			PopulationSize:  r.PopulationSize,
			Rounds:          r.Rounds,
			RoundsCompleted: r.RoundsCompleted,
			FinalCounts:     r.FinalCounts,
		})
	}
	return out, nil
}

// Rounds returns the stored round records of a run, optionally only the
// last Limit of them.
func (c *Client) Rounds(ctx context.Context, req RoundsRequest) ([]model.RoundRecord, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(ctx, p, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	rounds, ok, err := p.Store().GetRounds(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("rounds not found for run: %s", runID)
	}
	if req.Limit > 0 && len(rounds) > req.Limit {
		rounds = rounds[len(rounds)-req.Limit:]
	}
	return rounds, nil
}

func (c *Client) Strategies() []StrategyItem {
	specs := strategy.Builtin().List()
	out := make([]StrategyItem, 0, len(specs))
	for _, s := range specs {
		out = append(out, StrategyItem{
			ID:            string(s.ID),
			Description:   s.Description,
			TracksHistory: s.Caps.Has(game.TracksHistory),
			SeesAll:       s.Caps.Has(game.SeesAll),
		})
	}
	return out
}

func (c *Client) resolveRunID(ctx context.Context, p *platform.Polis, runID string, latest bool) (string, error) {
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id is required unless latest is set")
	}
	runs, err := p.Store().ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.log})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}
