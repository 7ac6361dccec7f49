package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pggsim/internal/config"
	"pggsim/internal/logging"
	api "pggsim/pkg/pggsim"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	root := newRootCmd(out)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

type app struct {
	out io.Writer
	log *zap.Logger

	configPath string
	verbose    bool
	logFormat  string
	storeKind  string
	dbPath     string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "pggsim",
		Short: "Evolutionary public goods game simulator",
		Long: `pggsim plays repeated public goods games in a finite population and
evolves the strategy mix by birth and death between rounds.

Strategies include unconditional players, the leading eight reputation
norms and a local reputation best responder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML simulation config")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: json or console")
	root.PersistentFlags().StringVar(&a.storeKind, "store", "", "Run store: memory or sqlite")
	root.PersistentFlags().StringVar(&a.dbPath, "db-path", "", "SQLite database path")

	root.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newRunsCmd(a),
		newRoundsCmd(a),
		newStrategiesCmd(a),
		newConfigCmd(a),
	)
	return root
}

// load reads the config file and sets up logging from it and the flags.
func (a *app) load() (*config.SimConfig, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	format := cfg.Logging.Format
	if a.logFormat != "" {
		format = a.logFormat
	}
	a.log, err = logging.New(level, format)
	if err != nil {
		return nil, err
	}
	if a.storeKind != "" {
		cfg.Store.Kind = a.storeKind
	}
	if a.dbPath != "" {
		cfg.Store.DBPath = a.dbPath
	}
	return cfg, nil
}

func (a *app) client(cfg *config.SimConfig) (*api.Client, error) {
	return api.New(api.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.DBPath,
		Logger:    a.log,
	})
}

func formatCounts(counts map[string]int, order []string) string {
	parts := make([]string, 0, len(order))
	for _, id := range order {
		parts = append(parts, fmt.Sprintf("%s:%d", id, counts[id]))
	}
	return strings.Join(parts, ",")
}
