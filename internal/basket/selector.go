// Package basket selects and weights the short-leg candidate set for a
// rebalance date, using only point-in-time data.
package basket

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/altbasket/internal/data"
)

// RankBy selects the candidate ordering.
type RankBy string

const (
	RankByVolume    RankBy = "volume"
	RankByMarketCap RankBy = "market_cap" // diagnostic, selection-independent
)

// Weighting selects the weight scheme within the basket.
type Weighting string

const (
	WeightEqual      Weighting = "equal"
	WeightInverseVol Weighting = "inverse_vol"
	WeightMarketCap  Weighting = "market_cap"
)

// Config holds eligibility screens and weighting parameters.
type Config struct {
	MaxNames        int      `yaml:"max_names"`         // basket size cap (default 10)
	MinMarketCap    float64  `yaml:"min_market_cap"`    // USD floor
	MinMedianVolume float64  `yaml:"min_median_volume"` // trailing median USD volume floor
	VolumeWindow    int      `yaml:"volume_window"`     // median window (default 30)
	Exclusions      []string `yaml:"exclusions"`        // benchmarks, stables, explicit bans

	// Optional screens, zero disables.
	MaxRealizedVol    float64 `yaml:"max_realized_vol"` // annualized ceiling
	RealizedVolWindow int     `yaml:"realized_vol_window"`
	MinBenchmarkCorr  float64 `yaml:"min_benchmark_corr"` // min |corr| to either benchmark
	CorrWindow        int     `yaml:"corr_window"`
	MomentumWindow    int     `yaml:"momentum_window"`
	MomentumMin       float64 `yaml:"momentum_min"` // exclude below (extreme losers)
	MomentumMax       float64 `yaml:"momentum_max"` // exclude above (extreme winners)

	RankBy        RankBy    `yaml:"rank_by"`
	Weighting     Weighting `yaml:"weighting"`
	MaxNameWeight float64   `yaml:"max_name_weight"` // per-name share cap within the basket
}

// DefaultConfig returns production selection defaults.
func DefaultConfig() Config {
	return Config{
		MaxNames:          10,
		MinMarketCap:      50_000_000,
		MinMedianVolume:   5_000_000,
		VolumeWindow:      30,
		RealizedVolWindow: 30,
		CorrWindow:        60,
		MomentumWindow:    30,
		RankBy:            RankByVolume,
		Weighting:         WeightEqual,
		MaxNameWeight:     0.25,
	}
}

// Validate is the startup configuration check.
func (c Config) Validate() error {
	if c.MaxNames <= 0 {
		return fmt.Errorf("basket: max_names must be positive, got %d", c.MaxNames)
	}
	if c.VolumeWindow <= 0 {
		return fmt.Errorf("basket: volume_window must be positive, got %d", c.VolumeWindow)
	}
	switch c.RankBy {
	case RankByVolume, RankByMarketCap:
	default:
		return fmt.Errorf("basket: unknown rank_by %q", c.RankBy)
	}
	switch c.Weighting {
	case WeightEqual, WeightInverseVol, WeightMarketCap:
	default:
		return fmt.Errorf("basket: unknown weighting %q", c.Weighting)
	}
	if c.MaxNameWeight <= 0 || c.MaxNameWeight > 1 {
		return fmt.Errorf("basket: max_name_weight must be in (0, 1], got %.4f", c.MaxNameWeight)
	}
	return nil
}

// Selector screens and weights the short-leg basket.
type Selector struct {
	cfg      Config
	benchA   *data.Series
	benchB   *data.Series
	excluded map[string]bool
}

// NewSelector creates a selector. The two benchmarks are always excluded
// from the basket regardless of the configured exclusion list.
func NewSelector(cfg Config, benchA, benchB *data.Series) *Selector {
	excluded := make(map[string]bool, len(cfg.Exclusions)+2)
	for _, sym := range cfg.Exclusions {
		excluded[sym] = true
	}
	if benchA != nil {
		excluded[benchA.Symbol] = true
	}
	if benchB != nil {
		excluded[benchB.Symbol] = true
	}
	return &Selector{cfg: cfg, benchA: benchA, benchB: benchB, excluded: excluded}
}

type candidate struct {
	symbol    string
	rankValue float64
	vol       float64 // trailing realized vol, reused for inverse-vol weighting
	marketCap float64
}

// BuildBasket returns relative (positive, sum=1) weights for the short leg
// as of asOf. No eligible candidates yields an empty map, never an error.
func (s *Selector) BuildBasket(ds *data.Dataset, asOf time.Time) map[string]float64 {
	var candidates []candidate

	for _, sym := range ds.Symbols() {
		if s.excluded[sym] {
			continue
		}
		series := ds.Asset(sym)
		c, ok := s.screen(series, asOf)
		if !ok {
			continue
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return map[string]float64{}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rankValue != candidates[j].rankValue {
			return candidates[i].rankValue > candidates[j].rankValue
		}
		return candidates[i].symbol < candidates[j].symbol
	})
	if len(candidates) > s.cfg.MaxNames {
		candidates = candidates[:s.cfg.MaxNames]
	}

	return s.weigh(candidates)
}

// screen applies the required and optional eligibility filters.
func (s *Selector) screen(series *data.Series, asOf time.Time) (candidate, bool) {
	if series == nil {
		return candidate{}, false
	}

	cap, ok := series.MarketCapAsOf(asOf)
	if !ok || cap < s.cfg.MinMarketCap {
		return candidate{}, false
	}

	volumes := series.TrailingVolumes(asOf, s.cfg.VolumeWindow)
	if len(volumes) == 0 || data.Median(volumes) < s.cfg.MinMedianVolume {
		return candidate{}, false
	}

	returns := series.TrailingLogReturns(asOf, s.cfg.RealizedVolWindow)
	realized := data.RealizedVol(returns)
	if s.cfg.MaxRealizedVol > 0 {
		if len(returns) == 0 || realized > s.cfg.MaxRealizedVol {
			return candidate{}, false
		}
	}

	if s.cfg.MinBenchmarkCorr > 0 && !s.correlated(series, asOf) {
		return candidate{}, false
	}

	if s.cfg.MomentumWindow > 0 && (s.cfg.MomentumMin != 0 || s.cfg.MomentumMax != 0) {
		mom, ok := series.Momentum(asOf, s.cfg.MomentumWindow)
		if !ok || mom < s.cfg.MomentumMin || mom > s.cfg.MomentumMax {
			return candidate{}, false
		}
	}

	c := candidate{symbol: series.Symbol, vol: realized, marketCap: cap}
	switch s.cfg.RankBy {
	case RankByMarketCap:
		c.rankValue = cap
	default:
		c.rankValue = data.Median(volumes)
	}
	return c, true
}

// correlated checks the minimum absolute correlation screen against
// either benchmark over the configured window.
func (s *Selector) correlated(series *data.Series, asOf time.Time) bool {
	for _, bench := range []*data.Series{s.benchA, s.benchB} {
		if bench == nil {
			continue
		}
		aligned := data.AlignedLogReturns(asOf, s.cfg.CorrWindow, series, bench)
		if aligned == nil {
			continue
		}
		if math.Abs(data.Correlation(aligned[0], aligned[1])) >= s.cfg.MinBenchmarkCorr {
			return true
		}
	}
	return false
}

// weigh applies the configured weighting scheme with a per-name cap.
func (s *Selector) weigh(candidates []candidate) map[string]float64 {
	weights := make(map[string]float64, len(candidates))

	switch s.cfg.Weighting {
	case WeightInverseVol:
		for _, c := range candidates {
			v := c.vol
			if v <= 0 {
				v = 1e-6
			}
			weights[c.symbol] = 1.0 / v
		}
	case WeightMarketCap:
		for _, c := range candidates {
			weights[c.symbol] = c.marketCap
		}
	default:
		for _, c := range candidates {
			weights[c.symbol] = 1.0
		}
	}

	normalize(weights)
	capAndRenormalize(weights, s.cfg.MaxNameWeight)
	return weights
}

func normalize(weights map[string]float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return
	}
	for sym := range weights {
		weights[sym] /= total
	}
}

// capAndRenormalize enforces the per-name cap, redistributing the excess
// across uncapped names. With n names and cap < 1/n the cap is not
// satisfiable; everything pins to the cap and the basket sums below one,
// which the solver treats as reduced gross rather than an error.
func capAndRenormalize(weights map[string]float64, cap float64) {
	syms := make([]string, 0, len(weights))
	for sym := range weights {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	// Names stay in the capped set once clamped so later passes never hand
	// excess back to them; each productive pass caps at least one new name,
	// so the loop settles within len(weights) passes.
	capped := make(map[string]bool, len(weights))
	for iter := 0; iter < len(weights); iter++ {
		excess := 0.0
		for _, sym := range syms {
			if !capped[sym] && weights[sym] >= cap {
				excess += weights[sym] - cap
				weights[sym] = cap
				capped[sym] = true
			}
		}
		if excess == 0 {
			return
		}
		uncappedTotal := 0.0
		for _, sym := range syms {
			if !capped[sym] {
				uncappedTotal += weights[sym]
			}
		}
		if uncappedTotal <= 0 {
			log.Warn().Float64("cap", cap).Int("names", len(weights)).
				Msg("per-name cap unsatisfiable, basket gross reduced")
			return
		}
		for _, sym := range syms {
			if !capped[sym] {
				weights[sym] += excess * weights[sym] / uncappedTotal
			}
		}
	}
	for _, sym := range syms {
		if weights[sym] > cap {
			weights[sym] = cap
		}
	}
}
