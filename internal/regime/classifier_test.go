package regime

import (
	"math"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.LowThreshold = -0.3
	cfg.HighThreshold = 0.3
	cfg.Hysteresis = 0.05
	cfg.MinDwell = 3
	cfg.VolGateEnabled = false
	return cfg
}

func TestClassifier_FirstObservationUsesRawThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  State
	}{
		{0.5, Bull},
		{-0.5, Bear},
		{0.0, Balanced},
		{0.3, Balanced}, // boundary itself is not a crossing
		{0.31, Bull},
	}
	for _, tc := range cases {
		c := NewClassifier(testConfig())
		if got := c.Observe(tc.score, 0); got != tc.want {
			t.Errorf("score %.2f: got %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClassifier_NaNScoreIsNeutral(t *testing.T) {
	c := NewClassifier(testConfig())
	if got := c.Observe(math.NaN(), 0); got != Balanced {
		t.Errorf("NaN score: got %s, want balanced", got)
	}
}

func TestTransition_DwellPenaltyBlocksEarlyExit(t *testing.T) {
	cfg := testConfig()

	// Young regime (dwell 0 < 3): exit needs low + hysteresis*1.5 = -0.225.
	cur := Status{State: Bear, Dwell: 0}
	next := Transition(cfg, cur, -0.25, 0)
	if next.State != Bear {
		t.Errorf("score -0.25 should not clear penalized margin, got %s", next.State)
	}
	if next.Dwell != 1 {
		t.Errorf("staying should advance dwell, got %d", next.Dwell)
	}

	next = Transition(cfg, cur, -0.2, 0)
	if next.State != Balanced {
		t.Errorf("score -0.20 clears penalized margin, got %s", next.State)
	}
	if next.Dwell != 0 {
		t.Errorf("transition must reset dwell, got %d", next.Dwell)
	}

	// Mature regime (dwell 3): plain hysteresis margin, exit at -0.25.
	mature := Status{State: Bear, Dwell: 3}
	if got := Transition(cfg, mature, -0.26, 0); got.State != Bear {
		t.Errorf("score -0.26 within plain margin should stay, got %s", got.State)
	}
	if got := Transition(cfg, mature, -0.24, 0); got.State != Balanced {
		t.Errorf("score -0.24 clears plain margin, got %s", got.State)
	}
}

func TestTransition_BalancedExitsWithoutPenalty(t *testing.T) {
	cfg := testConfig()

	// Balanced at dwell 0 would face the 1.5x penalty if it were not exempt.
	cur := Status{State: Balanced, Dwell: 0}
	if got := Transition(cfg, cur, 0.31, 0); got.State != Bull {
		t.Errorf("balanced must exit as soon as its threshold is crossed, got %s", got.State)
	}
	if got := Transition(cfg, cur, -0.31, 0); got.State != Bear {
		t.Errorf("balanced must exit downward freely, got %s", got.State)
	}
}

func TestClassifier_TransitionResetsDwell(t *testing.T) {
	c := NewClassifier(testConfig())
	c.Observe(-0.5, 0) // Bear, dwell 0
	c.Observe(-0.5, 0)
	c.Observe(-0.5, 0)
	c.Observe(-0.5, 0)
	if c.Dwell() != 3 {
		t.Fatalf("expected dwell 3, got %d", c.Dwell())
	}
	c.Observe(0.5, 0) // clears any margin
	if c.Current() != Bull {
		t.Fatalf("expected bull, got %s", c.Current())
	}
	if c.Dwell() != 0 {
		t.Errorf("transition must reset dwell, got %d", c.Dwell())
	}
}

func TestClassifier_NoLookAhead(t *testing.T) {
	cfg := testConfig()
	scores := []float64{-0.5, -0.4, -0.1, 0.1, 0.35, 0.4, 0.1, -0.2, -0.5, 0.0, 0.2, 0.45}

	base := NewClassifier(cfg)
	var baseLabels []State
	for _, s := range scores {
		baseLabels = append(baseLabels, base.Observe(s, 0))
	}

	// Perturbing everything after index k must not change labels <= k.
	for k := 0; k < len(scores); k++ {
		perturbed := make([]float64, len(scores))
		copy(perturbed, scores)
		for j := k + 1; j < len(perturbed); j++ {
			perturbed[j] = -perturbed[j] + 0.7
		}
		c := NewClassifier(cfg)
		for i := 0; i <= k; i++ {
			if got := c.Observe(perturbed[i], 0); got != baseLabels[i] {
				t.Fatalf("perturbing after %d changed label at %d: got %s, want %s",
					k, i, got, baseLabels[i])
			}
		}
	}
}

func TestClassifier_MinDwellSpacing(t *testing.T) {
	cfg := testConfig()
	cfg.Hysteresis = 0.1 // penalized margin 0.15 keeps moderate moves contained

	// Moderate oscillation around the low boundary: no score clears the
	// penalized margin until the regime has aged past min dwell.
	scores := []float64{-0.5, -0.28, -0.22, -0.27, -0.23, -0.1, -0.28, -0.22, -0.27, -0.1}

	c := NewClassifier(cfg)
	prev := c.Observe(scores[0], 0)
	lastChange := 0
	for i := 1; i < len(scores); i++ {
		cur := c.Observe(scores[i], 0)
		if cur != prev {
			gap := i - lastChange
			if gap < cfg.MinDwell && prev != Balanced {
				t.Errorf("transition at %d only %d observations after previous (min dwell %d)",
					i, gap, cfg.MinDwell)
			}
			lastChange = i
			prev = cur
		}
	}
}

func TestClassifier_VolGateCapsTopState(t *testing.T) {
	cfg := testConfig()
	cfg.VolGateEnabled = true
	cfg.VolGateThreshold = 0.9

	c := NewClassifier(cfg)
	if got := c.Observe(0.8, 1.2); got != Balanced {
		t.Errorf("elevated vol must cap bull entry, got %s", got)
	}

	c2 := NewClassifier(cfg)
	if got := c2.Observe(0.8, 0.5); got != Bull {
		t.Errorf("calm vol should allow bull, got %s", got)
	}
}

func TestClassifier_FiveStateBoundaries(t *testing.T) {
	cfg := testConfig()
	cfg.Taxonomy = FiveState
	cfg.StrongLowThreshold = -0.7
	cfg.StrongHighThreshold = 0.7

	cases := []struct {
		score float64
		want  State
	}{
		{-0.8, StrongBear},
		{-0.5, Bear},
		{0.0, Balanced},
		{0.5, Bull},
		{0.8, StrongBull},
	}
	for _, tc := range cases {
		c := NewClassifier(cfg)
		if got := c.Observe(tc.score, 0); got != tc.want {
			t.Errorf("score %.2f: got %s, want %s", tc.score, got, tc.want)
		}
	}

	// 5-state vol gate caps strong_bull at bull.
	cfg.VolGateEnabled = true
	cfg.VolGateThreshold = 0.9
	c := NewClassifier(cfg)
	if got := c.Observe(0.9, 1.5); got != Bull {
		t.Errorf("vol gate in five-state should cap at bull, got %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := cfg
	bad.LowThreshold = 0.5
	if err := bad.Validate(); err == nil {
		t.Error("inverted thresholds must fail validation")
	}

	bad = cfg
	bad.Taxonomy = "seven_state"
	if err := bad.Validate(); err == nil {
		t.Error("unknown taxonomy must fail validation")
	}

	bad = cfg
	bad.Taxonomy = FiveState
	bad.StrongLowThreshold = 0.0
	if err := bad.Validate(); err == nil {
		t.Error("strong_low above low must fail validation")
	}
}
