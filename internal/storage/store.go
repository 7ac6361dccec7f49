package storage

import (
	"context"

	"pggsim/internal/model"
)

// Store defines transaction-like persistence operations for simulation runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveRound(ctx context.Context, round model.RoundRecord) error
	// GetRounds returns the rounds of a run in ascending order.
	GetRounds(ctx context.Context, runID string) ([]model.RoundRecord, bool, error)
}
