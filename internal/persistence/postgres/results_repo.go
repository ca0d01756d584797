package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/altbasket/internal/persistence"
	"github.com/sawpanic/altbasket/internal/sim"
)

// resultsRepo implements persistence.ResultsRepo for PostgreSQL.
type resultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewResultsRepo creates a PostgreSQL results repository.
func NewResultsRepo(db *sqlx.DB, timeout time.Duration) persistence.ResultsRepo {
	return &resultsRepo{db: db, timeout: timeout}
}

// InsertRun records run metadata.
func (r *resultsRepo) InsertRun(ctx context.Context, run persistence.Run) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO backtest_runs (id, label, start_date, end_date, days)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Label, run.StartDate, run.EndDate, run.Days)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate run %s: %w", run.ID, err)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// InsertDailyResults appends the full result table in one transaction.
func (r *resultsRepo) InsertDailyResults(ctx context.Context, runID string, results []sim.DailyResult) error {
	if len(results) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(results)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_daily_results
			(run_id, date, regime, score, gross_pnl, net_pnl, cost, funding,
			 turnover, basket_gross, hedge_gross, equity, rebalanced, risk_event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		_, err := stmt.ExecContext(ctx,
			runID, res.Date, res.Regime, res.Score, res.GrossPnL, res.NetPnL,
			res.Cost, res.Funding, res.Turnover, res.BasketGross, res.HedgeGross,
			res.Equity, res.Rebalanced, res.RiskEvent)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", res.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// GetRun fetches run metadata by ID.
func (r *resultsRepo) GetRun(ctx context.Context, id string) (persistence.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.Run
	query := `
		SELECT id, label, start_date, end_date, days, created_at
		FROM backtest_runs WHERE id = $1`

	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return persistence.Run{}, fmt.Errorf("run %s not found", id)
		}
		return persistence.Run{}, fmt.Errorf("failed to fetch run: %w", err)
	}
	return run, nil
}
