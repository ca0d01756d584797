package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sawpanic/altbasket/internal/sim"
)

// Writer persists run artifacts to an output directory.
type Writer struct {
	outputDir string
}

// NewWriter creates a writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// OutputDir returns the artifact root.
func (w *Writer) OutputDir() string { return w.outputDir }

// WriteResultsCSV writes the daily result table as results.csv.
func (w *Writer) WriteResultsCSV(results []sim.DailyResult) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(w.outputDir, "results.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	header := []string{
		"date", "regime", "score", "gross_pnl", "net_pnl", "cost", "funding",
		"turnover", "basket_gross", "hedge_gross", "equity", "rebalanced", "risk_event",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.Date.Format("2006-01-02"),
			r.Regime,
			formatF(r.Score),
			formatF(r.GrossPnL),
			formatF(r.NetPnL),
			formatF(r.Cost),
			formatF(r.Funding),
			formatF(r.Turnover),
			formatF(r.BasketGross),
			formatF(r.HedgeGross),
			formatF(r.Equity),
			strconv.FormatBool(r.Rebalanced),
			r.RiskEvent,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}
	return nil
}

// WriteSummaryJSON writes the performance summary as summary.json.
func (w *Writer) WriteSummaryJSON(summary Summary) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	path := filepath.Join(w.outputDir, "summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func formatF(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
