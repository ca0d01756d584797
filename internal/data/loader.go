package data

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// LoadPricesCSV reads a long-format daily price file into a Dataset.
// Expected header: date,symbol,close,market_cap,volume,funding
// (funding optional per row, blank = absent). Rows may arrive in any
// order; per-asset ordering is enforced when the series is built.
func LoadPricesCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prices file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse prices CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("prices file %s has no data rows", path)
	}

	bars := make(map[string][]Bar)
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("prices row %d: want at least 5 columns, got %d", i+2, len(row))
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("prices row %d: bad date %q: %w", i+2, row[0], err)
		}
		sym := row[1]
		closePx, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("prices row %d: bad close %q: %w", i+2, row[2], err)
		}
		cap, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("prices row %d: bad market_cap %q: %w", i+2, row[3], err)
		}
		vol, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("prices row %d: bad volume %q: %w", i+2, row[4], err)
		}
		funding := math.NaN()
		if len(row) > 5 && row[5] != "" {
			funding, err = strconv.ParseFloat(row[5], 64)
			if err != nil {
				return nil, fmt.Errorf("prices row %d: bad funding %q: %w", i+2, row[5], err)
			}
		}
		bars[sym] = append(bars[sym], Bar{
			Date:      date,
			Close:     closePx,
			MarketCap: cap,
			Volume:    vol,
			Funding:   funding,
		})
	}

	series := make([]*Series, 0, len(bars))
	for sym, b := range bars {
		sort.Slice(b, func(i, j int) bool { return b[i].Date.Before(b[j].Date) })
		s, err := NewSeries(sym, b)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return NewDataset(series...), nil
}

// LoadScoresCSV reads the composite score file. Expected header: date,score.
// A blank score cell is recorded as NaN and later classified as neutral.
func LoadScoresCSV(path string) (*ScoreSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scores file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse scores CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("scores file %s has no data rows", path)
	}

	points := make([]ScorePoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("scores row %d: want 2 columns, got %d", i+2, len(row))
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("scores row %d: bad date %q: %w", i+2, row[0], err)
		}
		score := math.NaN()
		if row[1] != "" {
			score, err = strconv.ParseFloat(row[1], 64)
			if err != nil {
				return nil, fmt.Errorf("scores row %d: bad score %q: %w", i+2, row[1], err)
			}
		}
		points = append(points, ScorePoint{Date: date, Score: score})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return NewScoreSeries(points)
}
