package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"pggsim/internal/config"
	"pggsim/internal/storage"
	api "pggsim/pkg/pggsim"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		seed   int64
		rounds int
		output string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: `Run one simulation and write scounts.csv, spayouts.csv and sfitness.csv
to the output directory.

Examples:
  pggsim run --config sim.yaml
  pggsim run --seed 7 --rounds 500 --output out/seed-7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, seed, rounds, output)

			c, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			summary, err := c.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSummary(a, cfg, summary)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (overrides config)")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds (overrides config)")
	cmd.Flags().StringVar(&output, "output", "", "Output directory (overrides config)")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		seed       int64
		rounds     int
		output     string
		replicates int
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run replicate simulations with consecutive seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, seed, rounds, output)

			c, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			summaries, err := c.Batch(cmd.Context(), api.BatchRequest{
				Config:     cfg,
				Replicates: replicates,
				Workers:    workers,
			})
			if err != nil {
				return err
			}
			for _, s := range summaries {
				printSummary(a, cfg, s)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "First random seed (overrides config)")
	cmd.Flags().IntVar(&rounds, "rounds", 0, "Number of rounds (overrides config)")
	cmd.Flags().StringVar(&output, "output", "", "Output directory (overrides config)")
	cmd.Flags().IntVar(&replicates, "replicates", 4, "Number of replicates")
	cmd.Flags().IntVar(&workers, "workers", 1, "Replicates run in parallel")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.SimConfig, seed int64, rounds int, output string) {
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("rounds") {
		cfg.Rounds = rounds
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = output
	}
}

func printSummary(a *app, cfg *config.SimConfig, s api.RunSummary) {
	order := make([]string, 0, len(cfg.Strategies))
	for _, entry := range cfg.Strategies {
		order = append(order, entry.ID)
	}
	slices.Sort(order)
	fmt.Fprintf(a.out, "run completed run_id=%s seed=%d rounds=%d games=%d counts=%s\n",
		s.RunID, s.Seed, s.RoundsCompleted, s.Games, formatCounts(s.FinalCounts, order))
	if s.OutputDir != "" {
		fmt.Fprintf(a.out, "output_dir=%s\n", filepath.Clean(s.OutputDir))
	}
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Long: `List the runs recorded in the sqlite store, newest first.

The memory store only lives for one command, so this needs --store sqlite
on a binary built with -tags sqlite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if err := requirePersistentStore(cfg); err != nil {
				return err
			}
			c, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			items, err := c.Runs(cmd.Context(), api.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			for _, item := range items {
				order := slices.Sorted(slices.Values(item.Strategies))
				fmt.Fprintf(a.out, "run_id=%s created_at=%s seed=%d pop=%d rounds=%d/%d counts=%s\n",
					item.RunID, item.CreatedAtUTC, item.Seed, item.PopulationSize,
					item.RoundsCompleted, item.Rounds, formatCounts(item.FinalCounts, order))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newRoundsCmd(a *app) *cobra.Command {
	var (
		runID  string
		latest bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "Show stored per-round statistics of a run",
		Long: `Show the round records of a run from the sqlite store.

The memory store only lives for one command, so this needs --store sqlite
on a binary built with -tags sqlite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if err := requirePersistentStore(cfg); err != nil {
				return err
			}
			c, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			rounds, err := c.Rounds(cmd.Context(), api.RoundsRequest{RunID: runID, Latest: latest, Limit: limit})
			if err != nil {
				return err
			}
			for _, r := range rounds {
				order := make([]string, 0, len(r.Birth))
				for _, th := range r.Birth {
					order = append(order, th.Strategy)
				}
				slices.Sort(order)
				payoffs := make([]string, 0, len(order))
				for _, id := range order {
					payoffs = append(payoffs, fmt.Sprintf("%s:%.4f", id, r.AvgPayoffs[id]))
				}
				fmt.Fprintf(a.out, "round=%d counts=%s avg_payoffs=%s fitness_valid=%t\n",
					r.Round, formatCounts(r.Counts, order), strings.Join(payoffs, ","), r.Fitness != nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id")
	cmd.Flags().BoolVar(&latest, "latest", false, "Use the newest run")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the last N rounds")
	return cmd
}

// requirePersistentStore rejects the memory store for commands that read
// runs recorded by an earlier command.
func requirePersistentStore(cfg *config.SimConfig) error {
	kind := cfg.Store.Kind
	if kind == "" {
		kind = storage.DefaultStoreKind()
	}
	if kind == "memory" {
		return errors.New("the memory store keeps no runs between commands; use --store sqlite (build with -tags sqlite)")
	}
	return nil
}

func newStrategiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the built-in strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := api.New(api.Options{StoreKind: "memory"})
			if err != nil {
				return err
			}
			defer c.Close()
			for _, s := range c.Strategies() {
				fmt.Fprintf(a.out, "%s\ttracks_history=%t sees_all=%t\t%s\n", s.ID, s.TracksHistory, s.SeesAll, s.Description)
			}
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage simulation config files",
	}
	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote config=%s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "pggsim.yaml", "Destination file")
	cmd.AddCommand(initCmd)
	return cmd
}
