package storage

import (
	"errors"
	"testing"

	"pggsim/internal/game"
	"pggsim/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	run := model.RunRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1",
		Seed:            42,
		Strategies:      []string{"cooperator", "defector"},
		Weights:         []float64{0.5, 0.5},
		Payout:          game.DefaultPayoutParams(),
		FinalCounts:     map[string]int{"cooperator": 60, "defector": 40},
	}
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if decoded.ID != run.ID || decoded.Seed != run.Seed || decoded.Payout != run.Payout {
		t.Fatalf("unexpected run decoded: %+v", decoded)
	}
	if decoded.FinalCounts["defector"] != 40 {
		t.Fatalf("unexpected final counts: %+v", decoded.FinalCounts)
	}
}

func TestRoundCodecPreservesThresholdOrder(t *testing.T) {
	round := model.RoundRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Round:           3,
		Birth: []model.StrategyValue{
			{Strategy: "defector", Value: 0.25},
			{Strategy: "cooperator", Value: 1},
		},
	}
	data, err := EncodeRound(round)
	if err != nil {
		t.Fatalf("encode round: %v", err)
	}
	decoded, err := DecodeRound(data)
	if err != nil {
		t.Fatalf("decode round: %v", err)
	}
	if len(decoded.Birth) != 2 || decoded.Birth[0].Strategy != "defector" || decoded.Birth[1].Value != 1 {
		t.Fatalf("unexpected birth thresholds: %+v", decoded.Birth)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "future",
	})
	if err != nil {
		t.Fatalf("encode run: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	data, err = EncodeRound(model.RoundRecord{RunID: "run-1"})
	if err != nil {
		t.Fatalf("encode round: %v", err)
	}
	if _, err := DecodeRound(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}
