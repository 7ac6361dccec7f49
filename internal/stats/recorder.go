package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"pggsim/internal/evo"
	"pggsim/internal/game"
)

type table struct {
	file   *os.File
	writer *csv.Writer
}

// Recorder writes strategy counts, average payouts and fitness as one CSV
// row per round.
type Recorder struct {
	dir        string
	strategies []game.StrategyID

	counts  *table
	payouts *table
	fitness *table
}

func NewRecorder(dir string, strategies []game.StrategyID) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("at least one strategy is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	r := &Recorder{dir: dir, strategies: append([]game.StrategyID(nil), strategies...)}
	header := make([]string, 0, len(strategies)+1)
	header = append(header, "round")
	for _, id := range strategies {
		header = append(header, string(id))
	}

	var err error
	if r.counts, err = openTable(filepath.Join(dir, CountsFile), header); err != nil {
		return nil, err
	}
	if r.payouts, err = openTable(filepath.Join(dir, PayoutsFile), header); err != nil {
		_ = r.Close()
		return nil, err
	}
	if r.fitness, err = openTable(filepath.Join(dir, FitnessFile), header); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func openTable(path string, header []string) (*table, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		_ = file.Close()
		return nil, err
	}
	return &table{file: file, writer: writer}, nil
}

func (r *Recorder) Dir() string { return r.dir }

// ObserveRound appends one row to each table. Rounds without a valid
// fitness get zeros in the fitness table.
func (r *Recorder) ObserveRound(snap evo.RoundSnapshot) error {
	round := strconv.Itoa(snap.Round)
	counts := []string{round}
	payouts := []string{round}
	fitness := []string{round}
	for _, id := range r.strategies {
		counts = append(counts, strconv.Itoa(snap.Counts[id]))
		payouts = append(payouts, formatFloat(snap.AvgPayoffs[id]))
		fitness = append(fitness, formatFloat(snap.FitnessOf(id)))
	}

	for _, row := range []struct {
		t      *table
		values []string
	}{
		{r.counts, counts},
		{r.payouts, payouts},
		{r.fitness, fitness},
	} {
		if err := row.t.writer.Write(row.values); err != nil {
			return err
		}
		row.t.writer.Flush()
		if err := row.t.writer.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Close() error {
	var errs []error
	for _, t := range []*table{r.counts, r.payouts, r.fitness} {
		if t == nil {
			continue
		}
		t.writer.Flush()
		errs = append(errs, t.writer.Error(), t.file.Close())
	}
	return errors.Join(errs...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
