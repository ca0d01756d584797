// Package hedge sizes the benchmark hedge leg against a short basket so
// the combined book is approximately dollar- or beta-neutral under a
// gross exposure cap.
package hedge

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/altbasket/internal/beta"
)

// Mode selects the neutrality objective.
type Mode string

const (
	// DollarNeutral fixes leg gross shares first, then splits the hedge
	// between benchmarks to minimize residual factor exposure.
	DollarNeutral Mode = "dollar_neutral"
	// BetaNeutral zeroes each factor exposure exactly, then rescales if
	// the gross cap is breached.
	BetaNeutral Mode = "beta_neutral"
)

// Config holds solver parameters.
type Config struct {
	Mode          Mode    `yaml:"mode"`
	GrossCap      float64 `yaml:"gross_cap"`       // sum |w| ceiling (default 2.0)
	BasketShare   float64 `yaml:"basket_share"`    // basket fraction of gross (default 0.5)
	HedgeClampMax float64 `yaml:"hedge_clamp_max"` // per-benchmark |w| cap, beta-neutral mode
	Tolerance     float64 `yaml:"tolerance"`       // gross cap breach tolerance
}

// DefaultConfig returns the production solver defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          DollarNeutral,
		GrossCap:      2.0,
		BasketShare:   0.5,
		HedgeClampMax: 1.5,
		Tolerance:     1e-6,
	}
}

// Validate is the startup configuration check.
func (c Config) Validate() error {
	switch c.Mode {
	case DollarNeutral, BetaNeutral:
	default:
		return fmt.Errorf("hedge: unknown mode %q", c.Mode)
	}
	if c.GrossCap <= 0 {
		return fmt.Errorf("hedge: gross_cap must be positive, got %.4f", c.GrossCap)
	}
	if c.BasketShare <= 0 || c.BasketShare >= 1 {
		return fmt.Errorf("hedge: basket_share must be in (0, 1), got %.4f", c.BasketShare)
	}
	if c.HedgeClampMax <= 0 {
		return fmt.Errorf("hedge: hedge_clamp_max must be positive, got %.4f", c.HedgeClampMax)
	}
	return nil
}

// Solver computes combined basket+hedge weight maps.
type Solver struct {
	cfg    Config
	benchA string
	benchB string
}

// NewSolver creates a solver for the two named benchmark assets.
func NewSolver(cfg Config, benchA, benchB string) *Solver {
	return &Solver{cfg: cfg, benchA: benchA, benchB: benchB}
}

// SolveNeutrality converts relative basket weights (positive, ~sum 1) and
// per-asset beta pairs into a signed combined weight map: basket names
// negative, benchmarks positive. An empty basket yields an empty map.
func (s *Solver) SolveNeutrality(basket map[string]float64, betas map[string]beta.Estimate) map[string]float64 {
	if len(basket) == 0 {
		return map[string]float64{}
	}
	if s.cfg.Mode == BetaNeutral {
		return s.solveBetaNeutral(basket, betas)
	}
	return s.solveDollarNeutral(basket, betas)
}

// solveDollarNeutral scales the basket to BasketShare of the gross cap and
// solves in closed form for the hedge split that minimizes squared residual
// exposure to each benchmark, subject to the split summing to the
// complementary gross share. One free variable, convex quadratic.
func (s *Solver) solveDollarNeutral(basket map[string]float64, betas map[string]beta.Estimate) map[string]float64 {
	basketGross := s.cfg.BasketShare * s.cfg.GrossCap
	hedgeGross := (1 - s.cfg.BasketShare) * s.cfg.GrossCap

	weights := make(map[string]float64, len(basket)+2)
	expA, expB := 0.0, 0.0
	for _, sym := range sortedKeys(basket) {
		w := -basketGross * basket[sym]
		weights[sym] = w
		b := betas[sym]
		expA += w * b.BetaA
		expB += w * b.BetaB
	}

	// minimize (expA + hA)^2 + (expB + hedgeGross - hA)^2 over hA
	hA := (hedgeGross - expA + expB) / 2.0
	clamped := false
	if hA < 0 {
		hA, clamped = 0, true
	}
	if hA > hedgeGross {
		hA, clamped = hedgeGross, true
	}
	hB := hedgeGross - hA
	if clamped {
		log.Warn().
			Str("mode", string(DollarNeutral)).
			Float64("exposure_a", expA).
			Float64("exposure_b", expB).
			Msg("hedge split clamped, residual factor exposure remains")
	}

	weights[s.benchA] += hA
	weights[s.benchB] += hB
	return weights
}

// solveBetaNeutral zeroes each factor exposure exactly, clamps the hedge
// weights to the wider per-benchmark cap, and uniformly rescales the whole
// book if total gross exceeds the cap beyond tolerance.
func (s *Solver) solveBetaNeutral(basket map[string]float64, betas map[string]beta.Estimate) map[string]float64 {
	basketGross := s.cfg.BasketShare * s.cfg.GrossCap

	weights := make(map[string]float64, len(basket)+2)
	expA, expB := 0.0, 0.0
	for _, sym := range sortedKeys(basket) {
		w := -basketGross * basket[sym]
		weights[sym] = w
		b := betas[sym]
		expA += w * b.BetaA
		expB += w * b.BetaB
	}

	hA := -expA
	hB := -expB
	if math.Abs(hA) > s.cfg.HedgeClampMax || math.Abs(hB) > s.cfg.HedgeClampMax {
		log.Warn().
			Float64("hedge_a", hA).
			Float64("hedge_b", hB).
			Float64("clamp", s.cfg.HedgeClampMax).
			Msg("beta-neutral hedge clamped, exact neutrality lost")
		hA = clamp(hA, -s.cfg.HedgeClampMax, s.cfg.HedgeClampMax)
		hB = clamp(hB, -s.cfg.HedgeClampMax, s.cfg.HedgeClampMax)
	}

	weights[s.benchA] += hA
	weights[s.benchB] += hB

	gross := 0.0
	for _, w := range weights {
		gross += math.Abs(w)
	}
	if gross > s.cfg.GrossCap*(1+s.cfg.Tolerance) {
		scale := s.cfg.GrossCap / gross
		for sym := range weights {
			weights[sym] *= scale
		}
		log.Warn().
			Float64("gross", gross).
			Float64("cap", s.cfg.GrossCap).
			Msg("gross cap exceeded, book rescaled")
	}
	return weights
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
