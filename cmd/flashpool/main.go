package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flashPool/internal/config"
	"flashPool/internal/router"
	"flashPool/internal/scenario"
	"flashPool/internal/storage"
	"flashPool/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "flashpool",
		Short:        "Liquidity pool and flash loan simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading scenario",
		RunE:  runScenario,
	}

	runCmd.Flags().String("out", "./data/records.jsonl", "output JSONL path")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	runCmd.Flags().String("seed", "flashpool", "scenario seed")
	runCmd.Flags().Int("rounds", 3, "scenario rounds")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote <amount-in> <reserve-in> <reserve-out>",
		Short: "Quote a swap output for given reserves",
		Args:  cobra.ExactArgs(3),
		RunE:  runQuote,
	}

	root.AddCommand(quoteCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScenario(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	var sink scenario.PoolSink
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = store
	}

	runner, err := scenario.NewRunner(scenario.RunConfig{
		Seed:   cfg.Seed,
		Rounds: cfg.Rounds,
	}, storageSink, sink, logger)
	if err != nil {
		return err
	}

	logger.Info("scenario start",
		zap.String("seed", cfg.Seed),
		zap.Int("rounds", cfg.Rounds),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	return runner.Run(ctx)
}

func runQuote(cmd *cobra.Command, args []string) error {
	amountIn, ok := new(big.Int).SetString(args[0], 10)
	if !ok {
		return fmt.Errorf("invalid amount-in: %q", args[0])
	}
	reserveIn, ok := new(big.Int).SetString(args[1], 10)
	if !ok {
		return fmt.Errorf("invalid reserve-in: %q", args[1])
	}
	reserveOut, ok := new(big.Int).SetString(args[2], 10)
	if !ok {
		return fmt.Errorf("invalid reserve-out: %q", args[2])
	}

	out, err := router.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
