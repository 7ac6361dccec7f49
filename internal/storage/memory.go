package storage

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"

	"pggsim/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	rounds      map[string]map[int]model.RoundRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.rounds = make(map[string]map[int]model.RoundRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunRecord{}, false, errNotInitialized
	}
	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errNotInitialized
	}
	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, cloneRun(run))
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SaveRound(_ context.Context, round model.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	byRound, ok := s.rounds[round.RunID]
	if !ok {
		byRound = make(map[int]model.RoundRecord)
		s.rounds[round.RunID] = byRound
	}
	byRound[round.Round] = cloneRound(round)
	return nil
}

func (s *MemoryStore) GetRounds(_ context.Context, runID string) ([]model.RoundRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, errNotInitialized
	}
	byRound, ok := s.rounds[runID]
	if !ok {
		return nil, false, nil
	}
	keys := slices.Sorted(maps.Keys(byRound))
	rounds := make([]model.RoundRecord, 0, len(keys))
	for _, k := range keys {
		rounds = append(rounds, cloneRound(byRound[k]))
	}
	return rounds, true, nil
}

var errNotInitialized = errors.New("store is not initialized")

func sortRunsNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAtUTC == runs[j].CreatedAtUTC {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAtUTC > runs[j].CreatedAtUTC
	})
}

func cloneRun(run model.RunRecord) model.RunRecord {
	run.Strategies = slices.Clone(run.Strategies)
	run.Weights = slices.Clone(run.Weights)
	run.FinalCounts = maps.Clone(run.FinalCounts)
	return run
}

func cloneRound(round model.RoundRecord) model.RoundRecord {
	round.Counts = maps.Clone(round.Counts)
	round.AvgPayoffs = maps.Clone(round.AvgPayoffs)
	round.TotalGames = maps.Clone(round.TotalGames)
	round.Fitness = slices.Clone(round.Fitness)
	round.Birth = slices.Clone(round.Birth)
	round.Death = slices.Clone(round.Death)
	return round
}
