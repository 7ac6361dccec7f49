package evo

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"pggsim/internal/game"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestBuildThresholds(t *testing.T) {
	cases := []struct {
		name    string
		weights []StrategyWeight
		birth   Thresholds
		death   Thresholds
	}{
		{
			name: "initial shares",
			weights: []StrategyWeight{
				{Strategy: "defector", Weight: 0.25},
				{Strategy: "cooperator", Weight: 0.15},
				{Strategy: "nonparticipant", Weight: 0.55},
				{Strategy: "punisher", Weight: 0.05},
			},
			birth: Thresholds{
				{Strategy: "punisher", Value: 0.05},
				{Strategy: "cooperator", Value: 0.20},
				{Strategy: "defector", Value: 0.45},
				{Strategy: "nonparticipant", Value: 1.0},
			},
			death: Thresholds{
				{Strategy: "punisher", Value: 0.55},
				{Strategy: "cooperator", Value: 0.80},
				{Strategy: "defector", Value: 0.95},
				{Strategy: "nonparticipant", Value: 1.0},
			},
		},
		{
			name: "rederived shares",
			weights: []StrategyWeight{
				{Strategy: "defector", Weight: 0.4},
				{Strategy: "cooperator", Weight: 0.3},
				{Strategy: "nonparticipant", Weight: 0.2},
				{Strategy: "punisher", Weight: 0.1},
			},
			birth: Thresholds{
				{Strategy: "punisher", Value: 0.1},
				{Strategy: "nonparticipant", Value: 0.3},
				{Strategy: "cooperator", Value: 0.6},
				{Strategy: "defector", Value: 1.0},
			},
			death: Thresholds{
				{Strategy: "punisher", Value: 0.4},
				{Strategy: "nonparticipant", Value: 0.7},
				{Strategy: "cooperator", Value: 0.9},
				{Strategy: "defector", Value: 1.0},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			birth, death, err := BuildThresholds(tc.weights)
			if err != nil {
				t.Fatalf("build thresholds: %v", err)
			}
			if diff := cmp.Diff(tc.birth, birth, approx); diff != "" {
				t.Fatalf("birth thresholds mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.death, death, approx); diff != "" {
				t.Fatalf("death thresholds mismatch (-want +got):\n%s", diff)
			}
			if birth[len(birth)-1].Value != 1.0 || death[len(death)-1].Value != 1.0 {
				t.Fatal("last threshold must be exactly 1")
			}
		})
	}
}

func TestBuildThresholdsForcesLastToOne(t *testing.T) {
	birth, death, err := BuildThresholds([]StrategyWeight{
		{Strategy: "a", Weight: 0.1},
		{Strategy: "b", Weight: 0.1},
		{Strategy: "c", Weight: 0.1},
	})
	if err != nil {
		t.Fatalf("build thresholds: %v", err)
	}
	if birth[2].Value != 1.0 || death[2].Value != 1.0 {
		t.Fatalf("expected last thresholds of 1, got %v / %v", birth, death)
	}
	for i := 1; i < len(birth); i++ {
		if birth[i].Value < birth[i-1].Value || death[i].Value < death[i-1].Value {
			t.Fatalf("thresholds decrease: %v / %v", birth, death)
		}
	}
}

func TestBuildThresholdsRejectsZeroWeights(t *testing.T) {
	_, _, err := BuildThresholds([]StrategyWeight{
		{Strategy: "a", Weight: 0},
		{Strategy: "b", Weight: Tolerance},
	})
	if !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
	if _, _, err := BuildThresholds(nil); !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights for empty weights, got %v", err)
	}
}

func TestThresholdsPick(t *testing.T) {
	th := Thresholds{{Strategy: "a", Value: 0.25}, {Strategy: "b", Value: 1}}
	if id, ok := th.Pick(0.25); !ok || id != "a" {
		t.Fatalf("pick(0.25) = %s,%v want a", id, ok)
	}
	if id, ok := th.Pick(0.26); !ok || id != "b" {
		t.Fatalf("pick(0.26) = %s,%v want b", id, ok)
	}
	broken := Thresholds{{Strategy: "a", Value: 0.2}, {Strategy: "b", Value: 0.4}}
	if id, ok := broken.Pick(0.9); ok || id != "b" {
		t.Fatalf("uncovered pick = %s,%v want b,false", id, ok)
	}
}

func TestFitness(t *testing.T) {
	order := []game.StrategyID{"defector", "cooperator", "punisher", "nonparticipant"}
	avg := map[game.StrategyID]float64{
		"defector":       1,
		"cooperator":     1,
		"punisher":       0.7,
		"nonparticipant": 1,
	}
	got, ok := Fitness(order, avg, 0.249)
	if !ok {
		t.Fatal("expected valid fitness")
	}
	want := []StrategyWeight{
		{Strategy: "defector", Weight: 0.2548},
		{Strategy: "cooperator", Weight: 0.2548},
		{Strategy: "punisher", Weight: 0.2357},
		{Strategy: "nonparticipant", Weight: 0.2548},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, Tolerance)); diff != "" {
		t.Fatalf("fitness mismatch (-want +got):\n%s", diff)
	}
	sum := 0.0
	for _, w := range got {
		sum += w.Weight
	}
	if math.Abs(sum-1) > Tolerance {
		t.Fatalf("fitness sums to %f", sum)
	}
}

func TestFitnessInvalid(t *testing.T) {
	order := []game.StrategyID{"a", "b"}
	avg := map[game.StrategyID]float64{"a": -10, "b": -5}
	if _, ok := Fitness(order, avg, 1); ok {
		t.Fatal("expected invalid fitness when every value clamps to zero")
	}
}

func TestRunningAverageIdempotent(t *testing.T) {
	for _, payout := range []float64{0, 1, -0.5, 2.25, 0.7} {
		avg := 0.0
		for n := 1; n <= 64; n++ {
			avg = RunningAverage(avg, n, payout)
		}
		if math.Abs(avg-payout) > 1e-12 {
			t.Fatalf("running average of constant %f drifted to %f", payout, avg)
		}
	}

	avg := 0.0
	for n, v := range []float64{1, 2, 3, 4} {
		avg = RunningAverage(avg, n+1, v)
	}
	if avg != 2.5 {
		t.Fatalf("running average = %f, want 2.5", avg)
	}
}
