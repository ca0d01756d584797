// Package regime classifies a continuous composite score into a discrete
// market-state label with hysteresis and a minimum dwell time, so the
// label resists noise-driven churn near the thresholds.
package regime

import (
	"fmt"
	"math"
)

// State is the discrete market regime label. Ordering matters: states are
// comparable from most bearish to most bullish.
type State int

const (
	StrongBear State = iota
	Bear
	Balanced
	Bull
	StrongBull
)

func (s State) String() string {
	switch s {
	case StrongBear:
		return "strong_bear"
	case Bear:
		return "bear"
	case Balanced:
		return "balanced"
	case Bull:
		return "bull"
	case StrongBull:
		return "strong_bull"
	default:
		return "unknown"
	}
}

// ParseState converts a config label back into a State.
func ParseState(s string) (State, error) {
	switch s {
	case "strong_bear":
		return StrongBear, nil
	case "bear":
		return Bear, nil
	case "balanced":
		return Balanced, nil
	case "bull":
		return Bull, nil
	case "strong_bull":
		return StrongBull, nil
	default:
		return Balanced, fmt.Errorf("unknown regime state: %q", s)
	}
}

// Taxonomy selects between the 3-state and 5-state label sets.
type Taxonomy string

const (
	ThreeState Taxonomy = "three_state"
	FiveState  Taxonomy = "five_state"
)

// dwellPenalty is the hysteresis multiplier applied while a regime is
// younger than the minimum dwell.
const dwellPenalty = 1.5

// Config holds classifier thresholds and churn controls.
type Config struct {
	Taxonomy            Taxonomy `yaml:"taxonomy"`              // three_state | five_state
	LowThreshold        float64  `yaml:"low_threshold"`         // bear/balanced boundary
	HighThreshold       float64  `yaml:"high_threshold"`        // balanced/bull boundary
	StrongLowThreshold  float64  `yaml:"strong_low_threshold"`  // 5-state only
	StrongHighThreshold float64  `yaml:"strong_high_threshold"` // 5-state only
	Hysteresis          float64  `yaml:"hysteresis"`            // margin required to leave a state
	MinDwell            int      `yaml:"min_dwell"`             // observations before normal exits
	VolGateEnabled      bool     `yaml:"vol_gate_enabled"`
	VolGateThreshold    float64  `yaml:"vol_gate_threshold"` // caps entry into the top state
}

// DefaultConfig returns the production 3-state configuration.
func DefaultConfig() Config {
	return Config{
		Taxonomy:            ThreeState,
		LowThreshold:        -0.3,
		HighThreshold:       0.3,
		StrongLowThreshold:  -0.7,
		StrongHighThreshold: 0.7,
		Hysteresis:          0.05,
		MinDwell:            3,
		VolGateEnabled:      false,
		VolGateThreshold:    0.9,
	}
}

// Validate is the startup configuration check. Ordering violations here
// are the only fatal failure the classifier can produce.
func (c Config) Validate() error {
	switch c.Taxonomy {
	case ThreeState, FiveState:
	default:
		return fmt.Errorf("regime: unknown taxonomy %q", c.Taxonomy)
	}
	if c.LowThreshold >= c.HighThreshold {
		return fmt.Errorf("regime: low_threshold %.4f must be below high_threshold %.4f",
			c.LowThreshold, c.HighThreshold)
	}
	if c.Taxonomy == FiveState {
		if c.StrongLowThreshold >= c.LowThreshold {
			return fmt.Errorf("regime: strong_low_threshold %.4f must be below low_threshold %.4f",
				c.StrongLowThreshold, c.LowThreshold)
		}
		if c.StrongHighThreshold <= c.HighThreshold {
			return fmt.Errorf("regime: strong_high_threshold %.4f must be above high_threshold %.4f",
				c.StrongHighThreshold, c.HighThreshold)
		}
	}
	if c.Hysteresis < 0 {
		return fmt.Errorf("regime: hysteresis must be non-negative, got %.4f", c.Hysteresis)
	}
	if c.MinDwell < 0 {
		return fmt.Errorf("regime: min_dwell must be non-negative, got %d", c.MinDwell)
	}
	return nil
}

// boundaries returns the ordered state boundaries for the taxonomy.
// len+1 states span them, from the most bearish upward.
func (c Config) boundaries() []float64 {
	if c.Taxonomy == FiveState {
		return []float64{c.StrongLowThreshold, c.LowThreshold, c.HighThreshold, c.StrongHighThreshold}
	}
	return []float64{c.LowThreshold, c.HighThreshold}
}

// states returns the ordered label set for the taxonomy.
func (c Config) states() []State {
	if c.Taxonomy == FiveState {
		return []State{StrongBear, Bear, Balanced, Bull, StrongBull}
	}
	return []State{Bear, Balanced, Bull}
}

// TopState returns the most bullish label of the taxonomy, the one the
// volatility gate applies to.
func (c Config) TopState() State {
	if c.Taxonomy == FiveState {
		return StrongBull
	}
	return Bull
}

// Classifier advances the regime state machine one score at a time,
// strictly left-to-right. It owns the label: once emitted for a date,
// a label is never revised.
type Classifier struct {
	cfg     Config
	status  Status
	started bool
}

// NewClassifier creates a classifier with validated config.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Current returns the current state. Before the first observation it
// reports Balanced.
func (c *Classifier) Current() State {
	if !c.started {
		return Balanced
	}
	return c.status.State
}

// Dwell returns how many observations the current regime has persisted.
func (c *Classifier) Dwell() int { return c.status.Dwell }

// Reset clears all running state, as between walk-forward windows.
func (c *Classifier) Reset() {
	c.status = Status{}
	c.started = false
}

// Observe consumes one composite score plus a volatility proxy and returns
// the label for that observation. NaN scores degrade to neutral 0.0; the
// classifier never fails.
func (c *Classifier) Observe(score, volProxy float64) State {
	if math.IsNaN(score) {
		score = 0.0
	}
	if !c.started {
		st := classifyRaw(c.cfg, score)
		st = applyVolGate(c.cfg, st, volProxy)
		c.status = Status{State: st, Dwell: 0}
		c.started = true
		return st
	}
	c.status = Transition(c.cfg, c.status, score, volProxy)
	return c.status.State
}

// classifyRaw maps a score to a state using raw thresholds only.
func classifyRaw(cfg Config, score float64) State {
	bounds := cfg.boundaries()
	states := cfg.states()
	for i := len(bounds) - 1; i >= 0; i-- {
		if score > bounds[i] {
			return states[i+1]
		}
	}
	return states[0]
}

// applyVolGate caps a would-be entry into the most bullish label when the
// external volatility proxy is elevated.
func applyVolGate(cfg Config, st State, volProxy float64) State {
	if !cfg.VolGateEnabled || st != cfg.TopState() {
		return st
	}
	if volProxy > cfg.VolGateThreshold {
		return st - 1
	}
	return st
}
