// Package beta estimates an asset's return sensitivity to the two
// benchmark assets with a trailing-window ridge regression. Estimates
// are point-in-time safe: only history at or before the as-of date is
// ever consulted.
package beta

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/altbasket/internal/data"
)

// Estimate is the pair of sensitivities to benchmark A and benchmark B.
type Estimate struct {
	BetaA float64 `json:"beta_a" yaml:"beta_a"`
	BetaB float64 `json:"beta_b" yaml:"beta_b"`
}

// Config holds estimation parameters.
type Config struct {
	Window      int      `yaml:"window"`       // trailing daily observations (default 90)
	Lambda      float64  `yaml:"lambda"`       // L2 regularization strength
	WinsorPct   float64  `yaml:"winsor_pct"`   // per-series winsorization percentile
	ClampMin    float64  `yaml:"clamp_min"`    // coefficient floor
	ClampMax    float64  `yaml:"clamp_max"`    // coefficient ceiling
	MinObs      int      `yaml:"min_obs"`      // minimum aligned returns, else default
	DefaultPair Estimate `yaml:"default_pair"` // fallback on insufficient history
}

// DefaultConfig returns the production estimation defaults.
func DefaultConfig() Config {
	return Config{
		Window:      90,
		Lambda:      0.01,
		WinsorPct:   0.02,
		ClampMin:    -1.0,
		ClampMax:    3.0,
		MinObs:      30,
		DefaultPair: Estimate{BetaA: 1.0, BetaB: 0.0},
	}
}

// Validate is the startup configuration check.
func (c Config) Validate() error {
	if c.Window < 2 {
		return fmt.Errorf("beta: window must be at least 2, got %d", c.Window)
	}
	if c.Lambda < 0 {
		return fmt.Errorf("beta: lambda must be non-negative, got %.6f", c.Lambda)
	}
	if c.WinsorPct < 0 || c.WinsorPct >= 0.5 {
		return fmt.Errorf("beta: winsor_pct must be in [0, 0.5), got %.4f", c.WinsorPct)
	}
	if c.ClampMin >= c.ClampMax {
		return fmt.Errorf("beta: clamp_min %.4f must be below clamp_max %.4f", c.ClampMin, c.ClampMax)
	}
	if c.MinObs < 2 {
		return fmt.Errorf("beta: min_obs must be at least 2, got %d", c.MinObs)
	}
	return nil
}

// Estimator fits the two-benchmark regression for any asset as of a date.
type Estimator struct {
	cfg    Config
	benchA *data.Series
	benchB *data.Series
}

// NewEstimator creates an estimator bound to the two benchmark series.
func NewEstimator(cfg Config, benchA, benchB *data.Series) *Estimator {
	return &Estimator{cfg: cfg, benchA: benchA, benchB: benchB}
}

// EstimateBeta returns the asset's sensitivity pair as of asOf. It never
// fails: insufficient or degenerate history yields the configured default.
func (e *Estimator) EstimateBeta(asset *data.Series, asOf time.Time) Estimate {
	aligned := data.AlignedLogReturns(asOf, e.cfg.Window, asset, e.benchA, e.benchB)
	if aligned == nil || len(aligned[0]) < e.cfg.MinObs {
		return e.cfg.DefaultPair
	}

	y := data.Winsorize(aligned[0], e.cfg.WinsorPct)
	xa := data.Winsorize(aligned[1], e.cfg.WinsorPct)
	xb := data.Winsorize(aligned[2], e.cfg.WinsorPct)

	est, ok := ridge2(y, xa, xb, e.cfg.Lambda)
	if !ok {
		return e.cfg.DefaultPair
	}

	est.BetaA = clamp(est.BetaA, e.cfg.ClampMin, e.cfg.ClampMax)
	est.BetaB = clamp(est.BetaB, e.cfg.ClampMin, e.cfg.ClampMax)
	return est
}

// ridge2 solves the two-predictor L2-regularized least squares problem in
// closed form via the 2x2 normal equations. Returns false when the system
// is numerically singular.
func ridge2(y, xa, xb []float64, lambda float64) (Estimate, bool) {
	var saa, sbb, sab, say, sby float64
	for i := range y {
		saa += xa[i] * xa[i]
		sbb += xb[i] * xb[i]
		sab += xa[i] * xb[i]
		say += xa[i] * y[i]
		sby += xb[i] * y[i]
	}
	saa += lambda
	sbb += lambda

	det := saa*sbb - sab*sab
	if math.Abs(det) < 1e-12 {
		return Estimate{}, false
	}

	betaA := (sbb*say - sab*sby) / det
	betaB := (saa*sby - sab*say) / det
	if math.IsNaN(betaA) || math.IsNaN(betaB) || math.IsInf(betaA, 0) || math.IsInf(betaB, 0) {
		return Estimate{}, false
	}
	return Estimate{BetaA: betaA, BetaB: betaB}, true
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
