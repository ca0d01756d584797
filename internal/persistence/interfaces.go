// Package persistence defines the optional results store. The simulation
// core never touches it; the CLI wires it in when a DSN is supplied.
package persistence

import (
	"context"
	"time"

	"github.com/sawpanic/altbasket/internal/sim"
)

// Run is one completed backtest run's metadata.
type Run struct {
	ID        string    `db:"id"`
	Label     string    `db:"label"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Days      int       `db:"days"`
	CreatedAt time.Time `db:"created_at"`
}

// ResultsRepo persists runs and their daily result tables.
type ResultsRepo interface {
	// InsertRun records run metadata before the result rows.
	InsertRun(ctx context.Context, run Run) error
	// InsertDailyResults appends the full result table atomically.
	InsertDailyResults(ctx context.Context, runID string, results []sim.DailyResult) error
	// GetRun fetches run metadata by ID.
	GetRun(ctx context.Context, id string) (Run, error)
}
