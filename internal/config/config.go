package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"pggsim/internal/evo"
	"pggsim/internal/game"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// StrategyEntry is one strategy of the initial population. Weight is the
// initial population share; nil means it was left out of the file.
type StrategyEntry struct {
	ID     string   `yaml:"id"`
	Weight *float64 `yaml:"weight,omitempty"`
}

type StoreConfig struct {
	Kind   string `yaml:"kind"`
	DBPath string `yaml:"db_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimConfig holds all parameters of a simulation run.
type SimConfig struct {
	Seed              int64             `yaml:"seed"`
	PopulationSize    int               `yaml:"population_size"`
	GroupSize         int               `yaml:"group_size"`
	GamesPerRound     int               `yaml:"games_per_round"`
	Rounds            int               `yaml:"rounds"`
	SelectionStrength float64           `yaml:"selection_strength"`
	MutationRate      float64           `yaml:"mutation_rate"`
	ResetPayoffs      bool              `yaml:"reset_payoffs"`
	Payout            game.PayoutParams `yaml:"payout"`
	Strategies        []StrategyEntry   `yaml:"strategies"`
	OutputDir         string            `yaml:"output_dir"`
	Store             StoreConfig       `yaml:"store"`
	Logging           LoggingConfig     `yaml:"logging"`
}

// Default returns the parameter set of the reference experiment.
func Default() *SimConfig {
	return &SimConfig{
		Seed:              1,
		PopulationSize:    100,
		GroupSize:         5,
		GamesPerRound:     100,
		Rounds:            10000,
		SelectionStrength: 0.249,
		MutationRate:      0.001,
		ResetPayoffs:      true,
		Payout:            game.DefaultPayoutParams(),
		Strategies: []StrategyEntry{
			{ID: "cooperator"},
			{ID: "defector"},
		},
		OutputDir: "output",
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML file on top of the defaults and applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*SimConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *SimConfig) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *SimConfig) applyEnvOverrides() error {
	if raw := os.Getenv("PGGSIM_SEED"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("PGGSIM_SEED: %w", err)
		}
		c.Seed = seed
	}
	if dir := os.Getenv("PGGSIM_OUTPUT_DIR"); dir != "" {
		c.OutputDir = dir
	}
	if db := os.Getenv("PGGSIM_DB"); db != "" {
		c.Store.DBPath = db
		if c.Store.Kind == "" {
			c.Store.Kind = "sqlite"
		}
	}
	return nil
}

// Validate checks the parameter ranges. It does not look strategies up;
// the engine does that against its registry.
func (c *SimConfig) Validate() error {
	if len(c.Strategies) == 0 {
		return fmt.Errorf("%w: at least one strategy is required", ErrInvalidConfig)
	}
	withWeight := 0
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.ID == "" {
			return fmt.Errorf("%w: strategy %d has no id", ErrInvalidConfig, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: strategy %s listed twice", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if s.Weight != nil {
			if *s.Weight < 0 {
				return fmt.Errorf("%w: weight of %s must be >= 0", ErrInvalidConfig, s.ID)
			}
			withWeight++
		}
	}
	if withWeight != 0 && withWeight != len(c.Strategies) {
		return fmt.Errorf("%w: %d strategies but %d weights", ErrInvalidConfig, len(c.Strategies), withWeight)
	}
	if c.GroupSize <= 0 {
		return fmt.Errorf("%w: group size must be > 0", ErrInvalidConfig)
	}
	if c.PopulationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrInvalidConfig)
	}
	if c.GamesPerRound <= 0 {
		return fmt.Errorf("%w: games per round must be > 0", ErrInvalidConfig)
	}
	if c.Rounds < 0 {
		return fmt.Errorf("%w: rounds must be >= 0", ErrInvalidConfig)
	}
	if c.SelectionStrength < 0 || c.SelectionStrength > 1 {
		return fmt.Errorf("%w: selection strength must be in [0, 1]", ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Resolve validates the config and fills derived values: a population
// smaller than the group is raised to the group size.
func (c *SimConfig) Resolve() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PopulationSize < c.GroupSize {
		c.PopulationSize = c.GroupSize
	}
	return nil
}

// Weights returns the initial population shares in file order. Omitted
// weights mean equal shares.
func (c *SimConfig) Weights() []evo.StrategyWeight {
	out := make([]evo.StrategyWeight, len(c.Strategies))
	equal := 1 / float64(len(c.Strategies))
	for i, s := range c.Strategies {
		w := equal
		if s.Weight != nil {
			w = *s.Weight
		}
		out[i] = evo.StrategyWeight{Strategy: game.StrategyID(s.ID), Weight: w}
	}
	return out
}

// WeightSum is the total of Weights. Callers warn when it is not 1.
func (c *SimConfig) WeightSum() float64 {
	sum := 0.0
	for _, w := range c.Weights() {
		sum += w.Weight
	}
	return sum
}

// WeightsNormalized reports whether the weights sum to 1 within tolerance.
func (c *SimConfig) WeightsNormalized() bool {
	return math.Abs(c.WeightSum()-1) <= evo.Tolerance
}

// Clone returns a deep copy, so replicates can change seeds and output
// directories independently.
func (c *SimConfig) Clone() *SimConfig {
	out := *c
	out.Strategies = make([]StrategyEntry, len(c.Strategies))
	for i, s := range c.Strategies {
		out.Strategies[i] = StrategyEntry{ID: s.ID}
		if s.Weight != nil {
			w := *s.Weight
			out.Strategies[i].Weight = &w
		}
	}
	return &out
}
