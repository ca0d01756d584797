// Package data holds the in-memory point-in-time market dataset the
// backtest core consumes: per-asset daily series and the composite
// regime score series. All lookups are as-of-date safe.
package data

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar is one daily observation for one asset. Funding and OpenInterest
// are optional and NaN when the venue does not report them.
type Bar struct {
	Date         time.Time `json:"date"`
	Close        float64   `json:"close"`
	MarketCap    float64   `json:"market_cap"`
	Volume       float64   `json:"volume"`
	Funding      float64   `json:"funding"`
	OpenInterest float64   `json:"open_interest"`
}

// Series is an immutable date-ascending daily history for a single asset.
type Series struct {
	Symbol string

	dates   []time.Time
	closes  []float64
	caps    []float64
	volumes []float64
	funding []float64
	oi      []float64
}

// NewSeries builds a Series from bars, enforcing strict ascending dates.
// Duplicate or out-of-order dates are a data defect and rejected here,
// before any rolling math can silently misbehave.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	s := &Series{
		Symbol:  symbol,
		dates:   make([]time.Time, 0, len(bars)),
		closes:  make([]float64, 0, len(bars)),
		caps:    make([]float64, 0, len(bars)),
		volumes: make([]float64, 0, len(bars)),
		funding: make([]float64, 0, len(bars)),
		oi:      make([]float64, 0, len(bars)),
	}

	for i, bar := range bars {
		d := bar.Date.UTC().Truncate(24 * time.Hour)
		if i > 0 && !d.After(s.dates[i-1]) {
			return nil, fmt.Errorf("series %s: date %s not strictly after %s",
				symbol, d.Format("2006-01-02"), s.dates[i-1].Format("2006-01-02"))
		}
		s.dates = append(s.dates, d)
		s.closes = append(s.closes, bar.Close)
		s.caps = append(s.caps, bar.MarketCap)
		s.volumes = append(s.volumes, bar.Volume)
		s.funding = append(s.funding, bar.Funding)
		s.oi = append(s.oi, bar.OpenInterest)
	}

	return s, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.dates) }

// FirstDate returns the earliest observation date, zero if empty.
func (s *Series) FirstDate() time.Time {
	if len(s.dates) == 0 {
		return time.Time{}
	}
	return s.dates[0]
}

// LastDate returns the latest observation date, zero if empty.
func (s *Series) LastDate() time.Time {
	if len(s.dates) == 0 {
		return time.Time{}
	}
	return s.dates[len(s.dates)-1]
}

// indexAsOf returns the index of the last observation with date <= asOf,
// or -1 when no such observation exists.
func (s *Series) indexAsOf(asOf time.Time) int {
	d := asOf.UTC().Truncate(24 * time.Hour)
	// first index with date > d
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	return i - 1
}

// CloseAsOf returns the most recent close at or before asOf.
func (s *Series) CloseAsOf(asOf time.Time) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < 0 {
		return 0, false
	}
	return s.closes[i], true
}

// CloseOn returns the close for exactly asOf, false if the date is absent.
func (s *Series) CloseOn(asOf time.Time) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < 0 || !s.dates[i].Equal(asOf.UTC().Truncate(24*time.Hour)) {
		return 0, false
	}
	return s.closes[i], true
}

// MarketCapAsOf returns the most recent market cap at or before asOf.
func (s *Series) MarketCapAsOf(asOf time.Time) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < 0 {
		return 0, false
	}
	return s.caps[i], true
}

// FundingOn returns the 8-hour funding rate recorded for asOf.
// Missing or NaN funding reads as absent.
func (s *Series) FundingOn(asOf time.Time) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < 0 || !s.dates[i].Equal(asOf.UTC().Truncate(24*time.Hour)) {
		return 0, false
	}
	f := s.funding[i]
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ReturnOn returns the simple day-over-day return ending on asOf:
// close(asOf)/close(prev) - 1. False when asOf or its predecessor is absent.
func (s *Series) ReturnOn(asOf time.Time) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < 1 || !s.dates[i].Equal(asOf.UTC().Truncate(24*time.Hour)) {
		return 0, false
	}
	prev := s.closes[i-1]
	if prev <= 0 {
		return 0, false
	}
	return s.closes[i]/prev - 1.0, true
}

// TrailingCloses returns up to n closes ending at the last observation
// <= asOf, oldest first. Returns fewer than n when history is short.
func (s *Series) TrailingCloses(asOf time.Time, n int) []float64 {
	i := s.indexAsOf(asOf)
	if i < 0 || n <= 0 {
		return nil
	}
	lo := i - n + 1
	if lo < 0 {
		lo = 0
	}
	out := make([]float64, i-lo+1)
	copy(out, s.closes[lo:i+1])
	return out
}

// TrailingVolumes returns up to n volumes ending at the last observation
// <= asOf, oldest first.
func (s *Series) TrailingVolumes(asOf time.Time, n int) []float64 {
	i := s.indexAsOf(asOf)
	if i < 0 || n <= 0 {
		return nil
	}
	lo := i - n + 1
	if lo < 0 {
		lo = 0
	}
	out := make([]float64, i-lo+1)
	copy(out, s.volumes[lo:i+1])
	return out
}

// TrailingLogReturns returns up to n trailing daily log returns as of asOf,
// oldest first.
func (s *Series) TrailingLogReturns(asOf time.Time, n int) []float64 {
	closes := s.TrailingCloses(asOf, n+1)
	return LogReturns(closes)
}

// Momentum returns close(asOf)/close(asOf - n obs) - 1, false on short history.
func (s *Series) Momentum(asOf time.Time, n int) (float64, bool) {
	i := s.indexAsOf(asOf)
	if i < n {
		return 0, false
	}
	base := s.closes[i-n]
	if base <= 0 {
		return 0, false
	}
	return s.closes[i]/base - 1.0, true
}

// AlignedLogReturns computes log returns for each series restricted to the
// dates all of them share, up to asOf, keeping at most window returns.
// Used by the beta estimator so that every regression row is one common day.
func AlignedLogReturns(asOf time.Time, window int, series ...*Series) [][]float64 {
	if len(series) == 0 || window <= 0 {
		return nil
	}

	// Intersect observation dates <= asOf.
	counts := make(map[time.Time]int)
	for _, s := range series {
		i := s.indexAsOf(asOf)
		for j := 0; j <= i; j++ {
			counts[s.dates[j]]++
		}
	}
	var shared []time.Time
	for d, c := range counts {
		if c == len(series) {
			shared = append(shared, d)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })
	if len(shared) > window+1 {
		shared = shared[len(shared)-window-1:]
	}
	if len(shared) < 2 {
		return nil
	}

	out := make([][]float64, len(series))
	for k, s := range series {
		closes := make([]float64, 0, len(shared))
		for _, d := range shared {
			c, _ := s.CloseOn(d)
			closes = append(closes, c)
		}
		out[k] = LogReturns(closes)
	}
	return out
}

// Dataset is the full per-asset universe handed to a backtest run.
type Dataset struct {
	assets map[string]*Series
}

// NewDataset builds a dataset from per-asset series.
func NewDataset(series ...*Series) *Dataset {
	ds := &Dataset{assets: make(map[string]*Series, len(series))}
	for _, s := range series {
		ds.assets[s.Symbol] = s
	}
	return ds
}

// Asset returns the series for symbol, nil when unknown.
func (ds *Dataset) Asset(symbol string) *Series {
	return ds.assets[symbol]
}

// Symbols returns all asset symbols in sorted order. Sorted iteration is
// what keeps repeated runs byte-identical.
func (ds *Dataset) Symbols() []string {
	out := make([]string, 0, len(ds.assets))
	for sym := range ds.assets {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
