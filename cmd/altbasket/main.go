package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "altbasket"
	version = "v0.4.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Systematic long/short crypto basket research engine",
		Version: version,
		Long: `altbasket classifies market regime from a composite score, sizes a
beta-hedged short basket against the benchmark leg, and simulates realized
performance day by day with layered risk overlays.`,
	}

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a walk-forward backtest over a materialized dataset",
		Long:  "Runs the daily simulation over CSV price/score inputs and writes the result table and summary artifacts",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().String("config", "config/altbasket.yaml", "YAML configuration file")
	backtestCmd.Flags().String("prices", "", "long-format prices CSV (date,symbol,close,market_cap,volume,funding)")
	backtestCmd.Flags().String("scores", "", "composite score CSV (date,score)")
	backtestCmd.Flags().String("start", "", "first simulated date (YYYY-MM-DD, default: first score date)")
	backtestCmd.Flags().String("end", "", "last simulated date (YYYY-MM-DD, default: last score date)")
	backtestCmd.Flags().String("output", "./artifacts/backtest", "output directory for artifacts")
	backtestCmd.Flags().Bool("walk-forward", false, "partition the horizon into independent test windows")
	backtestCmd.Flags().Bool("diagnostic", false, "selection-independent diagnostic mode (rank by market cap)")
	backtestCmd.Flags().String("store-dsn", "", "optional PostgreSQL DSN to persist the run")
	backtestCmd.Flags().String("label", "", "run label for the results store")

	rootCmd.AddCommand(backtestCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
