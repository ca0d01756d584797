package sim

import (
	"fmt"

	"github.com/sawpanic/altbasket/internal/regime"
)

// RebalanceMode selects the rebalance heuristic.
type RebalanceMode string

const (
	// RebalanceFixed trades on a fixed day cadence.
	RebalanceFixed RebalanceMode = "fixed"
	// RebalanceDynamic trades on regime change or a large score move.
	RebalanceDynamic RebalanceMode = "dynamic"
)

// Config holds the simulator's own parameters. The component configs
// (regime, beta, basket, hedge, risk) live with their packages.
type Config struct {
	BenchmarkA string `yaml:"benchmark_a"`
	BenchmarkB string `yaml:"benchmark_b"`

	RebalanceMode         RebalanceMode `yaml:"rebalance_mode"`
	RebalanceIntervalDays int           `yaml:"rebalance_interval_days"`
	ScoreMoveThreshold    float64       `yaml:"score_move_threshold"` // dynamic mode, absolute move

	RiskOnStates []string `yaml:"risk_on_states"` // regimes the strategy trades in

	FeeRate        float64 `yaml:"fee_rate"` // per unit turnover
	FundingEnabled bool    `yaml:"funding_enabled"`

	ReturnWindow   int     `yaml:"return_window"`    // bounded trailing-return window
	VolProxyWindow int     `yaml:"vol_proxy_window"` // benchmark vol window for the regime gate
	InitialEquity  float64 `yaml:"initial_equity"`

	WalkForward WalkForwardConfig `yaml:"walk_forward"`
}

// WalkForwardConfig controls the optional outer train/test partitioning.
type WalkForwardConfig struct {
	Enabled      bool `yaml:"enabled"`
	LookbackDays int  `yaml:"lookback_days"` // classifier warm-up before each test window
	TestDays     int  `yaml:"test_days"`
}

// DefaultConfig returns production simulation defaults.
func DefaultConfig() Config {
	return Config{
		BenchmarkA:            "BTC",
		BenchmarkB:            "ETH",
		RebalanceMode:         RebalanceDynamic,
		RebalanceIntervalDays: 7,
		ScoreMoveThreshold:    0.25,
		RiskOnStates:          []string{"bear", "strong_bear"},
		FeeRate:               0.001,
		FundingEnabled:        true,
		ReturnWindow:          30,
		VolProxyWindow:        30,
		InitialEquity:         1.0,
		WalkForward: WalkForwardConfig{
			Enabled:      false,
			LookbackDays: 90,
			TestDays:     30,
		},
	}
}

// Validate is the startup configuration check, the sole fatal category.
func (c Config) Validate() error {
	if c.BenchmarkA == "" || c.BenchmarkB == "" {
		return fmt.Errorf("sim: both benchmarks must be set")
	}
	if c.BenchmarkA == c.BenchmarkB {
		return fmt.Errorf("sim: benchmarks must differ, both %q", c.BenchmarkA)
	}
	switch c.RebalanceMode {
	case RebalanceFixed, RebalanceDynamic:
	default:
		return fmt.Errorf("sim: unknown rebalance_mode %q", c.RebalanceMode)
	}
	if c.RebalanceMode == RebalanceFixed && c.RebalanceIntervalDays <= 0 {
		return fmt.Errorf("sim: rebalance_interval_days must be positive, got %d", c.RebalanceIntervalDays)
	}
	if c.RebalanceMode == RebalanceDynamic && c.ScoreMoveThreshold < 0 {
		return fmt.Errorf("sim: score_move_threshold must be non-negative, got %.4f", c.ScoreMoveThreshold)
	}
	if len(c.RiskOnStates) == 0 {
		return fmt.Errorf("sim: risk_on_states must not be empty")
	}
	for _, s := range c.RiskOnStates {
		if _, err := regime.ParseState(s); err != nil {
			return fmt.Errorf("sim: bad risk_on_states entry: %w", err)
		}
	}
	if c.FeeRate < 0 {
		return fmt.Errorf("sim: fee_rate must be non-negative, got %.6f", c.FeeRate)
	}
	if c.ReturnWindow <= 0 {
		return fmt.Errorf("sim: return_window must be positive, got %d", c.ReturnWindow)
	}
	if c.VolProxyWindow <= 0 {
		return fmt.Errorf("sim: vol_proxy_window must be positive, got %d", c.VolProxyWindow)
	}
	if c.InitialEquity <= 0 {
		return fmt.Errorf("sim: initial_equity must be positive, got %.4f", c.InitialEquity)
	}
	if c.WalkForward.Enabled {
		if c.WalkForward.TestDays <= 0 {
			return fmt.Errorf("sim: walk_forward test_days must be positive, got %d", c.WalkForward.TestDays)
		}
		if c.WalkForward.LookbackDays < 0 {
			return fmt.Errorf("sim: walk_forward lookback_days must be non-negative, got %d", c.WalkForward.LookbackDays)
		}
	}
	return nil
}

// riskOn reports whether st belongs to the configured risk-on family.
func (c Config) riskOn(st regime.State) bool {
	for _, s := range c.RiskOnStates {
		if parsed, err := regime.ParseState(s); err == nil && parsed == st {
			return true
		}
	}
	return false
}
