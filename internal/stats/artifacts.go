package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"pggsim/internal/game"
)

const (
	CountsFile    = "scounts.csv"
	PayoutsFile   = "spayouts.csv"
	FitnessFile   = "sfitness.csv"
	RunConfigFile = "config.json"
)

// RunConfig is the parameter set written next to the per-round tables.
type RunConfig struct {
	RunID             string            `json:"run_id"`
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
}

func WriteRunConfig(dir string, cfg RunConfig) error {
	if cfg.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, RunConfigFile), cfg)
}

func ReadRunConfig(dir string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, RunConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}
	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

// Series is one per-round table: a header naming each strategy and one row
// of values per round.
type Series struct {
	Strategies []string
	Rounds     []int
	Values     [][]float64
}

// ReadSeries loads a table written by Recorder.
func ReadSeries(path string) (Series, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Series{}, false, nil
		}
		return Series{}, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Series{}, true, nil
		}
		return Series{}, false, err
	}
	if len(header) < 1 || header[0] != "round" {
		return Series{}, false, fmt.Errorf("series header must start with round")
	}

	series := Series{Strategies: header[1:]}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, false, err
		}
		round, err := strconv.Atoi(record[0])
		if err != nil {
			return Series{}, false, fmt.Errorf("parse round: %w", err)
		}
		values := make([]float64, len(record)-1)
		for i, raw := range record[1:] {
			values[i], err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return Series{}, false, fmt.Errorf("parse round %d column %d: %w", round, i+1, err)
			}
		}
		series.Rounds = append(series.Rounds, round)
		series.Values = append(series.Values, values)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
