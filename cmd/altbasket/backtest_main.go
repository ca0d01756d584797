package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/altbasket/internal/basket"
	"github.com/sawpanic/altbasket/internal/beta"
	"github.com/sawpanic/altbasket/internal/config"
	"github.com/sawpanic/altbasket/internal/data"
	"github.com/sawpanic/altbasket/internal/hedge"
	"github.com/sawpanic/altbasket/internal/persistence"
	"github.com/sawpanic/altbasket/internal/persistence/postgres"
	"github.com/sawpanic/altbasket/internal/regime"
	"github.com/sawpanic/altbasket/internal/report"
	"github.com/sawpanic/altbasket/internal/risk"
	"github.com/sawpanic/altbasket/internal/sim"
)

// runBacktest executes one backtest run end to end: load config and data,
// wire the strategy, simulate, write artifacts, optionally persist.
func runBacktest(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	pricesPath, _ := cmd.Flags().GetString("prices")
	scoresPath, _ := cmd.Flags().GetString("scores")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	outputDir, _ := cmd.Flags().GetString("output")
	walkForward, _ := cmd.Flags().GetBool("walk-forward")
	diagnostic, _ := cmd.Flags().GetBool("diagnostic")
	storeDSN, _ := cmd.Flags().GetString("store-dsn")
	label, _ := cmd.Flags().GetString("label")

	if pricesPath == "" || scoresPath == "" {
		return fmt.Errorf("--prices and --scores are required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if diagnostic {
		cfg.Basket.RankBy = basket.RankByMarketCap
	}

	ds, err := data.LoadPricesCSV(pricesPath)
	if err != nil {
		return err
	}
	scores, err := data.LoadScoresCSV(scoresPath)
	if err != nil {
		return err
	}
	if scores.Len() == 0 {
		return fmt.Errorf("score series is empty")
	}

	dates := scores.Dates()
	start, end := dates[0], dates[len(dates)-1]
	if startStr != "" {
		if start, err = time.Parse("2006-01-02", startStr); err != nil {
			return fmt.Errorf("bad --start: %w", err)
		}
	}
	if endStr != "" {
		if end, err = time.Parse("2006-01-02", endStr); err != nil {
			return fmt.Errorf("bad --end: %w", err)
		}
	}

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}

	log.Info().
		Str("config", configPath).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Int("assets", len(ds.Symbols())).
		Bool("walk_forward", walkForward).
		Bool("diagnostic", diagnostic).
		Msg("starting backtest")

	benchA := ds.Asset(cfg.Sim.BenchmarkA)
	benchB := ds.Asset(cfg.Sim.BenchmarkB)
	if benchA == nil || benchB == nil {
		return fmt.Errorf("configuration error: benchmarks %s/%s missing from dataset",
			cfg.Sim.BenchmarkA, cfg.Sim.BenchmarkB)
	}

	buildStrategy := func() sim.Strategy {
		return sim.NewStrategy(
			basket.NewSelector(cfg.Basket, benchA, benchB),
			beta.NewEstimator(cfg.Beta, benchA, benchB),
			hedge.NewSolver(cfg.Hedge, cfg.Sim.BenchmarkA, cfg.Sim.BenchmarkB),
		)
	}

	var results []sim.DailyResult
	if walkForward || cfg.Sim.WalkForward.Enabled {
		cfg.Sim.WalkForward.Enabled = true
		wf := sim.NewWalkForward(cfg.Sim, cfg.Regime, cfg.Risk, ds, scores, buildStrategy)
		results = wf.Run(start, end)
	} else {
		s := sim.New(cfg.Sim, ds, scores,
			regime.NewClassifier(cfg.Regime), buildStrategy(), risk.NewOverlay(cfg.Risk))
		results = s.Run(start, end)
	}

	summary := report.Summarize(results)
	writer := report.NewWriter(absOutputDir)
	if err := writer.WriteResultsCSV(results); err != nil {
		return err
	}
	if err := writer.WriteSummaryJSON(summary); err != nil {
		return err
	}

	log.Info().
		Int("days", summary.Days).
		Float64("total_return", summary.TotalReturn).
		Float64("sharpe", summary.Sharpe).
		Float64("max_drawdown", summary.MaxDrawdown).
		Str("artifacts", absOutputDir).
		Msg("backtest complete")

	if storeDSN != "" {
		if err := persistRun(storeDSN, label, results); err != nil {
			return err
		}
	}
	return nil
}

// persistRun writes the run and its result table to PostgreSQL.
func persistRun(dsn, label string, results []sim.DailyResult) error {
	if len(results) == 0 {
		return nil
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to results store: %w", err)
	}
	defer db.Close()

	repo := postgres.NewResultsRepo(db, 30*time.Second)
	run := persistence.Run{
		ID:        uuid.New().String(),
		Label:     label,
		StartDate: results[0].Date,
		EndDate:   results[len(results)-1].Date,
		Days:      len(results),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := repo.InsertRun(ctx, run); err != nil {
		return err
	}
	if err := repo.InsertDailyResults(ctx, run.ID, results); err != nil {
		return err
	}

	log.Info().Str("run_id", run.ID).Int("days", run.Days).Msg("run persisted")
	return nil
}
