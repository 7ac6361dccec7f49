package model

import "pggsim/internal/game"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one finished simulation run.
type RunRecord struct {
	VersionedRecord
	ID                string            `json:"id"`
	CreatedAtUTC      string            `json:"created_at_utc"`
	Seed              int64             `json:"seed"`
	Strategies        []string          `json:"strategies"`
	Weights           []float64         `json:"weights"`
	PopulationSize    int               `json:"population_size"`
	GroupSize         int               `json:"group_size"`
	GamesPerRound     int               `json:"games_per_round"`
	Rounds            int               `json:"rounds"`
	SelectionStrength float64           `json:"selection_strength"`
	MutationRate      float64           `json:"mutation_rate"`
	ResetPayoffs      bool              `json:"reset_payoffs"`
	Payout            game.PayoutParams `json:"payout"`
	RoundsCompleted   int               `json:"rounds_completed"`
	FinalCounts       map[string]int    `json:"final_counts"`
	OutputDir         string            `json:"output_dir,omitempty"`
}

type StrategyValue struct {
	Strategy string  `json:"strategy"`
	Value    float64 `json:"value"`
}

// RoundRecord is the per-round statistics row of a run.
type RoundRecord struct {
	VersionedRecord
	RunID      string             `json:"run_id"`
	Round      int                `json:"round"`
	Counts     map[string]int     `json:"counts"`
	AvgPayoffs map[string]float64 `json:"avg_payoffs"`
	TotalGames map[string]int     `json:"total_games"`
	Fitness    []StrategyValue    `json:"fitness,omitempty"`
	Birth      []StrategyValue    `json:"birth"`
	Death      []StrategyValue    `json:"death"`
}
