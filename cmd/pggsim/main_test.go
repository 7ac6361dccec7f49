package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pggsim/internal/config"
	"pggsim/internal/stats"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.PopulationSize = 10
	cfg.GamesPerRound = 5
	cfg.Rounds = 3
	cfg.Store.Kind = "memory"
	cfg.Logging.Level = "error"
	cfg.Strategies = []config.StrategyEntry{{ID: "cooperator"}, {ID: "l8-gbb"}}
	path := filepath.Join(dir, "sim.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func TestRunCommandWritesTables(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	err := run(context.Background(), []string{"run", "--config", cfgPath, "--seed", "3", "--output", outDir}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "run completed") || !strings.Contains(out.String(), "seed=3") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, stats.FitnessFile)); err != nil {
		t.Fatalf("expected fitness table: %v", err)
	}
}

func TestBatchCommandPrintsEveryReplicate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	var out bytes.Buffer
	err := run(context.Background(), []string{"batch", "--config", cfgPath, "--replicates", "3", "--workers", "2", "--output", filepath.Join(dir, "batch")}, &out)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if got := strings.Count(out.String(), "run completed"); got != 3 {
		t.Fatalf("expected 3 summaries, got %d: %q", got, out.String())
	}
}

func TestStrategiesCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"strategies"}, &out); err != nil {
		t.Fatalf("strategies: %v", err)
	}
	for _, id := range []string{"cooperator", "local-reputation", "l8-standing", "l8-judging"} {
		if !strings.Contains(out.String(), id) {
			t.Fatalf("missing %s in %q", id, out.String())
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pggsim.yaml")
	var out bytes.Buffer
	if err := run(context.Background(), []string{"config", "init", "--path", path}, &out); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.PopulationSize != config.Default().PopulationSize {
		t.Fatalf("unexpected population size %d", cfg.PopulationSize)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	if err := run(context.Background(), []string{"benchmark"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestStoredRunCommandsRejectMemoryStore(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	for _, args := range [][]string{
		{"runs", "--config", cfgPath},
		{"rounds", "--config", cfgPath, "--latest"},
		{"runs", "--config", cfgPath, "--store", "memory"},
	} {
		err := run(context.Background(), args, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "memory store") {
			t.Fatalf("%v: expected memory store error, got %v", args, err)
		}
	}
}
