package platform

import (
	"context"

	"pggsim/internal/evo"
	"pggsim/internal/model"
	"pggsim/internal/storage"
)

// roundPersister stores every round snapshot as a round record.
type roundPersister struct {
	ctx   context.Context
	store storage.Store
	runID string
}

func (r *roundPersister) ObserveRound(snap evo.RoundSnapshot) error {
	return r.store.SaveRound(r.ctx, toModelRound(r.runID, snap))
}

func toModelRound(runID string, snap evo.RoundSnapshot) model.RoundRecord {
	record := model.RoundRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		Round:           snap.Round,
		Counts:          make(map[string]int, len(snap.Counts)),
		AvgPayoffs:      make(map[string]float64, len(snap.AvgPayoffs)),
		TotalGames:      make(map[string]int, len(snap.TotalGames)),
		Birth:           toModelThresholds(snap.Birth),
		Death:           toModelThresholds(snap.Death),
	}
	for id, n := range snap.Counts {
		record.Counts[string(id)] = n
	}
	for id, v := range snap.AvgPayoffs {
		record.AvgPayoffs[string(id)] = v
	}
	for id, n := range snap.TotalGames {
		record.TotalGames[string(id)] = n
	}
	if snap.Fitness != nil {
		record.Fitness = make([]model.StrategyValue, len(snap.Fitness))
		for i, w := range snap.Fitness {
			record.Fitness[i] = model.StrategyValue{Strategy: string(w.Strategy), Value: w.Weight}
		}
	}
	return record
}

func toModelThresholds(th evo.Thresholds) []model.StrategyValue {
	out := make([]model.StrategyValue, len(th))
	for i, t := range th {
		out[i] = model.StrategyValue{Strategy: string(t.Strategy), Value: t.Value}
	}
	return out
}
