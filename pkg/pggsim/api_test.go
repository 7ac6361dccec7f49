package pggsim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pggsim/internal/config"
	"pggsim/internal/stats"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{StoreKind: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func smallConfig(dir string) *config.SimConfig {
	cfg := config.Default()
	cfg.Seed = 21
	cfg.PopulationSize = 15
	cfg.GroupSize = 5
	cfg.GamesPerRound = 8
	cfg.Rounds = 4
	cfg.OutputDir = dir
	cfg.Strategies = []config.StrategyEntry{
		{ID: "cooperator"},
		{ID: "defector"},
		{ID: "l8-judging"},
	}
	return cfg
}

func TestClientRunRunsAndRounds(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	dir := filepath.Join(t.TempDir(), "out")
	cfg := smallConfig(dir)

	summary, err := c.Run(ctx, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 4, summary.RoundsCompleted)
	assert.Equal(t, 32, summary.Games)
	assert.Equal(t, dir, summary.OutputDir)

	total := 0
	for _, n := range summary.FinalCounts {
		total += n
	}
	assert.Equal(t, 15, total)

	for _, name := range []string{stats.CountsFile, stats.PayoutsFile, stats.FitnessFile, stats.RunConfigFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	runs, err := c.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
	assert.Equal(t, []string{"cooperator", "defector", "l8-judging"}, runs[0].Strategies)

	rounds, err := c.Rounds(ctx, RoundsRequest{Latest: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 2, rounds[0].Round)
	assert.Equal(t, 3, rounds[1].Round)

	_, err = c.Rounds(ctx, RoundsRequest{})
	assert.Error(t, err)
	_, err = c.Rounds(ctx, RoundsRequest{RunID: "missing"})
	assert.Error(t, err)
}

func TestClientRunLeavesConfigUntouched(t *testing.T) {
	c := newClient(t)
	cfg := smallConfig("")
	cfg.PopulationSize = 2

	_, err := c.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PopulationSize)
}

func TestClientBatchUsesConsecutiveSeeds(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	dir := t.TempDir()

	summaries, err := c.Batch(ctx, BatchRequest{Config: smallConfig(dir), Replicates: 3, Workers: 2})
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for i, s := range summaries {
		assert.Equal(t, int64(21+i), s.Seed)
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("seed-%d", 21+i)), s.OutputDir)
		_, err := os.Stat(filepath.Join(s.OutputDir, stats.CountsFile))
		assert.NoError(t, err)
	}

	runs, err := c.Runs(ctx, RunsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	again, err := c.Batch(ctx, BatchRequest{Config: smallConfig(""), Replicates: 3, Workers: 3})
	require.NoError(t, err)
	for i := range summaries {
		assert.Equal(t, summaries[i].FinalCounts, again[i].FinalCounts, "replicate %d", i)
	}
}

func TestClientBatchValidation(t *testing.T) {
	c := newClient(t)
	_, err := c.Batch(context.Background(), BatchRequest{})
	assert.Error(t, err)
	_, err = c.Batch(context.Background(), BatchRequest{Config: smallConfig(""), Replicates: 0})
	assert.Error(t, err)
}

func TestClientStopRunCancelsActiveRun(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)
	cfg := smallConfig("")
	cfg.Rounds = 1_000_000

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx, cfg)
		done <- err
	}()

	var active []string
	deadline := time.Now().Add(10 * time.Second)
	for len(active) == 0 && time.Now().Before(deadline) {
		var err error
		active, err = c.ActiveRuns(ctx)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	require.Len(t, active, 1)
	require.NoError(t, c.StopRun(ctx, active[0]))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}

	runs, err := c.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Error(t, c.StopRun(ctx, active[0]))
}

func TestClientStrategies(t *testing.T) {
	c := newClient(t)
	items := c.Strategies()
	byID := make(map[string]StrategyItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	require.Contains(t, byID, "l8-standing")
	assert.True(t, byID["l8-standing"].SeesAll)
	assert.True(t, byID["local-reputation"].TracksHistory)
	assert.False(t, byID["local-reputation"].SeesAll)
	assert.False(t, byID["cooperator"].TracksHistory)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{StoreKind: "postgres"})
	assert.Error(t, err)
}
