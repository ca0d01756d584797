// Package risk layers independent triggers and scaling factors over the
// simulator's proposed positions: stop-loss, take-profit, trailing stop,
// volatility targeting, and regime-confidence scaling. Triggers can force
// the held book flat for the current day, not merely veto the next trade.
package risk

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/altbasket/internal/data"
	"github.com/sawpanic/altbasket/internal/regime"
)

// StopLossConfig controls the volatility-scaled loss triggers.
type StopLossConfig struct {
	Enabled        bool    `yaml:"enabled"`
	DailyThreshold float64 `yaml:"daily_threshold"` // base single-day loss (default 0.03)
	CumThreshold   float64 `yaml:"cum_threshold"`   // base cumulative loss (default 0.06)
	CumWindow      int     `yaml:"cum_window"`      // trailing days for cumulative check
	RefVol         float64 `yaml:"ref_vol"`         // annualized reference vol
	ScaleMin       float64 `yaml:"scale_min"`       // vol-scale floor (default 0.5)
	ScaleMax       float64 `yaml:"scale_max"`       // vol-scale ceiling (default 2.0)
	AbsWorstCase   float64 `yaml:"abs_worst_case"`  // loss level that always stops (0 disables)
}

// TakeProfitConfig controls profit and holding-period exits.
type TakeProfitConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MinReturn    float64 `yaml:"min_return"`    // return-since-entry trigger
	MaxHoldDays  int     `yaml:"max_hold_days"` // 0 disables the holding-period exit
	ExitFraction float64 `yaml:"exit_fraction"` // 1.0 = full exit, else partial
}

// TrailingStopConfig controls the equity drawdown exit.
type TrailingStopConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MaxDrawdown float64 `yaml:"max_drawdown"` // drawdown from trailing peak
}

// VolTargetConfig controls volatility-targeting position scaling.
type VolTargetConfig struct {
	Enabled   bool    `yaml:"enabled"`
	TargetVol float64 `yaml:"target_vol"` // annualized
	ScaleMin  float64 `yaml:"scale_min"`
	ScaleMax  float64 `yaml:"scale_max"`
}

// ConfidenceMode selects how regime confidence maps to a position scale.
type ConfidenceMode string

const (
	ConfidenceConstant   ConfidenceMode = "constant"   // per-regime constant
	ConfidenceContinuous ConfidenceMode = "continuous" // function of score depth
)

// ConfidenceConfig controls regime-confidence scaling.
type ConfidenceConfig struct {
	Mode      ConfidenceMode     `yaml:"mode"`
	PerRegime map[string]float64 `yaml:"per_regime"` // constant mode, missing = 1.0
	DepthRef  float64            `yaml:"depth_ref"`  // continuous mode: |score| at full size
	MinScale  float64            `yaml:"min_scale"`  // continuous mode floor
}

// Config is the full risk overlay configuration.
type Config struct {
	StopLoss     StopLossConfig     `yaml:"stop_loss"`
	TakeProfit   TakeProfitConfig   `yaml:"take_profit"`
	TrailingStop TrailingStopConfig `yaml:"trailing_stop"`
	VolTarget    VolTargetConfig    `yaml:"vol_target"`
	Confidence   ConfidenceConfig   `yaml:"confidence"`
}

// DefaultConfig returns production risk defaults.
func DefaultConfig() Config {
	return Config{
		StopLoss: StopLossConfig{
			Enabled:        true,
			DailyThreshold: 0.03,
			CumThreshold:   0.06,
			CumWindow:      5,
			RefVol:         0.50,
			ScaleMin:       0.5,
			ScaleMax:       2.0,
			AbsWorstCase:   0.10,
		},
		TakeProfit: TakeProfitConfig{
			Enabled:      false,
			MinReturn:    0.15,
			MaxHoldDays:  0,
			ExitFraction: 1.0,
		},
		TrailingStop: TrailingStopConfig{
			Enabled:     true,
			MaxDrawdown: 0.12,
		},
		VolTarget: VolTargetConfig{
			Enabled:   true,
			TargetVol: 0.20,
			ScaleMin:  0.5,
			ScaleMax:  1.5,
		},
		Confidence: ConfidenceConfig{
			Mode:     ConfidenceConstant,
			DepthRef: 1.0,
			MinScale: 0.25,
		},
	}
}

// Validate is the startup configuration check.
func (c Config) Validate() error {
	if c.StopLoss.Enabled {
		if c.StopLoss.DailyThreshold <= 0 {
			return fmt.Errorf("risk: stop_loss daily_threshold must be positive, got %.4f", c.StopLoss.DailyThreshold)
		}
		if c.StopLoss.CumWindow <= 0 {
			return fmt.Errorf("risk: stop_loss cum_window must be positive, got %d", c.StopLoss.CumWindow)
		}
		if c.StopLoss.RefVol <= 0 {
			return fmt.Errorf("risk: stop_loss ref_vol must be positive, got %.4f", c.StopLoss.RefVol)
		}
		if c.StopLoss.ScaleMin <= 0 || c.StopLoss.ScaleMax < c.StopLoss.ScaleMin {
			return fmt.Errorf("risk: stop_loss scale bounds invalid: [%.2f, %.2f]", c.StopLoss.ScaleMin, c.StopLoss.ScaleMax)
		}
	}
	if c.TakeProfit.Enabled {
		if c.TakeProfit.ExitFraction <= 0 || c.TakeProfit.ExitFraction > 1 {
			return fmt.Errorf("risk: take_profit exit_fraction must be in (0, 1], got %.4f", c.TakeProfit.ExitFraction)
		}
	}
	if c.TrailingStop.Enabled && c.TrailingStop.MaxDrawdown <= 0 {
		return fmt.Errorf("risk: trailing_stop max_drawdown must be positive, got %.4f", c.TrailingStop.MaxDrawdown)
	}
	if c.VolTarget.Enabled {
		if c.VolTarget.TargetVol <= 0 {
			return fmt.Errorf("risk: vol_target target_vol must be positive, got %.4f", c.VolTarget.TargetVol)
		}
		if c.VolTarget.ScaleMin <= 0 || c.VolTarget.ScaleMax < c.VolTarget.ScaleMin {
			return fmt.Errorf("risk: vol_target scale bounds invalid: [%.2f, %.2f]", c.VolTarget.ScaleMin, c.VolTarget.ScaleMax)
		}
	}
	switch c.Confidence.Mode {
	case "", ConfidenceConstant, ConfidenceContinuous:
	default:
		return fmt.Errorf("risk: unknown confidence mode %q", c.Confidence.Mode)
	}
	return nil
}

// PositionStatus is the simulator's carry-state snapshot the overlay
// evaluates each morning, before the day's PnL exists. TrailingReturns
// run through yesterday, oldest first.
type PositionStatus struct {
	HasPosition     bool
	TrailingReturns []float64
	Equity          float64
	PeakEquity      float64
	EntryEquity     float64
	DaysHeld        int
}

// Verdict is the overlay's decision for one day.
type Verdict struct {
	ForceFlat    bool
	PartialScale float64 // applied to the held book when in (0, 1)
	Reason       string
}

// Overlay evaluates the layered triggers in fixed order: stop-loss,
// take-profit, trailing stop. The first trigger wins.
type Overlay struct {
	cfg Config
}

// NewOverlay creates a risk overlay.
func NewOverlay(cfg Config) *Overlay {
	return &Overlay{cfg: cfg}
}

// Evaluate returns the day's verdict. With no held position every trigger
// is vacuously quiet.
func (o *Overlay) Evaluate(ps PositionStatus) Verdict {
	if !ps.HasPosition {
		return Verdict{PartialScale: 1.0}
	}

	if v, hit := o.evaluateStopLoss(ps); hit {
		return v
	}
	if v, hit := o.evaluateTakeProfit(ps); hit {
		return v
	}
	if v, hit := o.evaluateTrailingStop(ps); hit {
		return v
	}
	return Verdict{PartialScale: 1.0}
}

// evaluateStopLoss checks the vol-scaled single-day and cumulative loss
// triggers. The effective threshold is the base scaled by realized/reference
// vol (clamped to [ScaleMin, ScaleMax]) and never looser than AbsWorstCase.
func (o *Overlay) evaluateStopLoss(ps PositionStatus) (Verdict, bool) {
	cfg := o.cfg.StopLoss
	if !cfg.Enabled || len(ps.TrailingReturns) == 0 {
		return Verdict{}, false
	}

	scale := 1.0
	if rv := data.RealizedVol(ps.TrailingReturns); rv > 0 {
		scale = clampF(rv/cfg.RefVol, cfg.ScaleMin, cfg.ScaleMax)
	}

	daily := cfg.DailyThreshold * scale
	if cfg.AbsWorstCase > 0 && daily > cfg.AbsWorstCase {
		daily = cfg.AbsWorstCase
	}
	last := ps.TrailingReturns[len(ps.TrailingReturns)-1]
	if last <= -daily {
		log.Warn().Float64("return", last).Float64("threshold", daily).
			Msg("single-day stop-loss triggered, flattening")
		return Verdict{ForceFlat: true, Reason: fmt.Sprintf("stop_loss_daily %.4f <= -%.4f", last, daily)}, true
	}

	if cfg.CumThreshold > 0 {
		cum := cfg.CumThreshold * scale
		if cfg.AbsWorstCase > 0 && cum > cfg.AbsWorstCase {
			cum = cfg.AbsWorstCase
		}
		window := ps.TrailingReturns
		if len(window) > cfg.CumWindow {
			window = window[len(window)-cfg.CumWindow:]
		}
		total := 0.0
		for _, r := range window {
			total += r
		}
		if total <= -cum {
			log.Warn().Float64("cum_return", total).Float64("threshold", cum).
				Msg("cumulative stop-loss triggered, flattening")
			return Verdict{ForceFlat: true, Reason: fmt.Sprintf("stop_loss_cum %.4f <= -%.4f", total, cum)}, true
		}
	}
	return Verdict{}, false
}

// evaluateTakeProfit checks the return-since-entry and holding-period exits.
func (o *Overlay) evaluateTakeProfit(ps PositionStatus) (Verdict, bool) {
	cfg := o.cfg.TakeProfit
	if !cfg.Enabled || ps.EntryEquity <= 0 {
		return Verdict{}, false
	}

	sinceEntry := ps.Equity/ps.EntryEquity - 1.0
	hit := sinceEntry >= cfg.MinReturn
	aged := cfg.MaxHoldDays > 0 && ps.DaysHeld >= cfg.MaxHoldDays
	if !hit && !aged {
		return Verdict{}, false
	}

	reason := "take_profit_return"
	if aged && !hit {
		reason = "take_profit_max_hold"
	}
	if cfg.ExitFraction < 1.0 && hit && !aged {
		return Verdict{PartialScale: 1.0 - cfg.ExitFraction, Reason: reason}, true
	}
	return Verdict{ForceFlat: true, Reason: reason}, true
}

// evaluateTrailingStop checks the drawdown-from-peak exit.
func (o *Overlay) evaluateTrailingStop(ps PositionStatus) (Verdict, bool) {
	cfg := o.cfg.TrailingStop
	if !cfg.Enabled || ps.PeakEquity <= 0 {
		return Verdict{}, false
	}
	dd := ps.Equity/ps.PeakEquity - 1.0
	if dd <= -cfg.MaxDrawdown {
		log.Warn().Float64("drawdown", dd).Float64("threshold", cfg.MaxDrawdown).
			Msg("trailing stop triggered, flattening")
		return Verdict{ForceFlat: true, Reason: fmt.Sprintf("trailing_stop %.4f <= -%.4f", dd, cfg.MaxDrawdown)}, true
	}
	return Verdict{}, false
}

// ConfidenceScale maps the current regime and score to a position scale.
// Constant mode reads the per-regime table (missing entries scale 1.0);
// continuous mode scales with score depth relative to DepthRef.
func (o *Overlay) ConfidenceScale(state regime.State, score float64) float64 {
	cfg := o.cfg.Confidence
	switch cfg.Mode {
	case ConfidenceContinuous:
		if cfg.DepthRef <= 0 {
			return 1.0
		}
		s := math.Abs(score) / cfg.DepthRef
		return clampF(s, cfg.MinScale, 1.0)
	default:
		if s, ok := cfg.PerRegime[state.String()]; ok {
			return s
		}
		return 1.0
	}
}

// VolTargetScale returns the volatility-targeting factor for the trailing
// portfolio returns: target over realized, clamped. Disabled or burn-in
// states scale 1.0.
func (o *Overlay) VolTargetScale(trailingReturns []float64) float64 {
	cfg := o.cfg.VolTarget
	if !cfg.Enabled || len(trailingReturns) < 2 {
		return 1.0
	}
	rv := data.RealizedVol(trailingReturns)
	if rv <= 0 {
		return 1.0
	}
	return clampF(cfg.TargetVol/rv, cfg.ScaleMin, cfg.ScaleMax)
}

func clampF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
