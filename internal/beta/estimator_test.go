package beta

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/altbasket/internal/data"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seriesFromReturns builds a price series whose daily log returns equal
// the given sequence.
func seriesFromReturns(t *testing.T, symbol string, returns []float64) *data.Series {
	t.Helper()
	bars := make([]data.Bar, 0, len(returns)+1)
	price := 100.0
	bars = append(bars, data.Bar{Date: testBase, Close: price, MarketCap: 1e9, Volume: 1e7})
	for i, r := range returns {
		price *= math.Exp(r)
		bars = append(bars, data.Bar{
			Date:      testBase.AddDate(0, 0, i+1),
			Close:     price,
			MarketCap: 1e9,
			Volume:    1e7,
		})
	}
	s, err := data.NewSeries(symbol, bars)
	require.NoError(t, err)
	return s
}

func synthReturns(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func testBetaConfig() Config {
	cfg := DefaultConfig()
	cfg.Window = 60
	cfg.Lambda = 1e-6
	cfg.WinsorPct = 0
	cfg.MinObs = 30
	return cfg
}

func TestEstimator_RecoversCollinearBeta(t *testing.T) {
	n := 80
	rA := synthReturns(n, func(i int) float64 { return 0.01 * math.Sin(float64(i)) })
	rB := synthReturns(n, func(i int) float64 { return 0.008 * math.Cos(1.7*float64(i)) })

	benchA := seriesFromReturns(t, "BTC", rA)
	benchB := seriesFromReturns(t, "ETH", rB)
	asset := seriesFromReturns(t, "ALT", rA) // identical to benchmark A

	est := NewEstimator(testBetaConfig(), benchA, benchB)
	asOf := testBase.AddDate(0, 0, n)
	got := est.EstimateBeta(asset, asOf)

	assert.InDelta(t, 1.0, got.BetaA, 0.02, "collinear asset must load ~1.0 on benchmark A")
	assert.InDelta(t, 0.0, got.BetaB, 0.02, "collinear asset must load ~0.0 on benchmark B")
}

func TestEstimator_InsufficientHistoryReturnsDefault(t *testing.T) {
	cfg := testBetaConfig()
	cfg.DefaultPair = Estimate{BetaA: 1.0, BetaB: 0.5}

	rA := synthReturns(10, func(i int) float64 { return 0.01 })
	benchA := seriesFromReturns(t, "BTC", rA)
	benchB := seriesFromReturns(t, "ETH", rA)
	asset := seriesFromReturns(t, "ALT", rA)

	est := NewEstimator(cfg, benchA, benchB)
	got := est.EstimateBeta(asset, testBase.AddDate(0, 0, 10))

	assert.Equal(t, cfg.DefaultPair, got, "short overlap must fall back to the default pair")
}

func TestEstimator_EmptyAssetReturnsDefault(t *testing.T) {
	cfg := testBetaConfig()
	rA := synthReturns(60, func(i int) float64 { return 0.01 * math.Sin(float64(i)) })
	benchA := seriesFromReturns(t, "BTC", rA)
	benchB := seriesFromReturns(t, "ETH", rA)

	empty, err := data.NewSeries("ALT", nil)
	require.NoError(t, err)

	est := NewEstimator(cfg, benchA, benchB)
	got := est.EstimateBeta(empty, testBase.AddDate(0, 0, 60))
	assert.Equal(t, cfg.DefaultPair, got)
}

func TestEstimator_ClampsCoefficients(t *testing.T) {
	cfg := testBetaConfig()
	cfg.ClampMax = 3.0

	n := 80
	rA := synthReturns(n, func(i int) float64 { return 0.01 * math.Sin(float64(i)) })
	rB := synthReturns(n, func(i int) float64 { return 0.008 * math.Cos(1.7*float64(i)) })
	amplified := synthReturns(n, func(i int) float64 { return 5 * 0.01 * math.Sin(float64(i)) })

	benchA := seriesFromReturns(t, "BTC", rA)
	benchB := seriesFromReturns(t, "ETH", rB)
	asset := seriesFromReturns(t, "ALT", amplified)

	est := NewEstimator(cfg, benchA, benchB)
	got := est.EstimateBeta(asset, testBase.AddDate(0, 0, n))

	assert.Equal(t, 3.0, got.BetaA, "5x amplified beta must clamp to the ceiling")
}

func TestEstimator_PointInTime(t *testing.T) {
	// Changing observations after the as-of date must not change the estimate.
	n := 100
	rA := synthReturns(n, func(i int) float64 { return 0.01 * math.Sin(float64(i)) })
	rB := synthReturns(n, func(i int) float64 { return 0.008 * math.Cos(1.7*float64(i)) })

	benchA := seriesFromReturns(t, "BTC", rA)
	benchB := seriesFromReturns(t, "ETH", rB)
	asset := seriesFromReturns(t, "ALT", rA)

	// Same histories truncated at the as-of date.
	asOfIdx := 80
	benchA2 := seriesFromReturns(t, "BTC", rA[:asOfIdx])
	benchB2 := seriesFromReturns(t, "ETH", rB[:asOfIdx])
	asset2 := seriesFromReturns(t, "ALT", rA[:asOfIdx])

	asOf := testBase.AddDate(0, 0, asOfIdx)
	full := NewEstimator(testBetaConfig(), benchA, benchB).EstimateBeta(asset, asOf)
	trunc := NewEstimator(testBetaConfig(), benchA2, benchB2).EstimateBeta(asset2, asOf)

	assert.Equal(t, trunc, full, "future observations must not leak into the estimate")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Window = 1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.ClampMin = 5
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.WinsorPct = 0.6
	assert.Error(t, bad.Validate())
}
