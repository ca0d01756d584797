package basket

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/altbasket/internal/data"
)

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type assetSpec struct {
	symbol    string
	marketCap float64
	volume    float64
	drift     float64 // daily log return, constant
}

func makeSeries(t *testing.T, spec assetSpec, days int) *data.Series {
	t.Helper()
	bars := make([]data.Bar, days)
	price := 10.0
	for i := 0; i < days; i++ {
		bars[i] = data.Bar{
			Date:      testBase.AddDate(0, 0, i),
			Close:     price,
			MarketCap: spec.marketCap,
			Volume:    spec.volume,
			Funding:   math.NaN(),
		}
		price *= math.Exp(spec.drift)
	}
	s, err := data.NewSeries(spec.symbol, bars)
	require.NoError(t, err)
	return s
}

func makeDataset(t *testing.T, days int, specs ...assetSpec) *data.Dataset {
	t.Helper()
	series := make([]*data.Series, 0, len(specs))
	for _, spec := range specs {
		series = append(series, makeSeries(t, spec, days))
	}
	return data.NewDataset(series...)
}

func testSelectorConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxNames = 3
	cfg.MinMarketCap = 1e8
	cfg.MinMedianVolume = 1e6
	cfg.VolumeWindow = 10
	cfg.MaxRealizedVol = 0
	cfg.MinBenchmarkCorr = 0
	cfg.MomentumWindow = 0
	cfg.MaxNameWeight = 0.5
	return cfg
}

func TestSelector_FiltersAndRanksByVolume(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0.001},
		assetSpec{"ETH", 5e11, 5e9, 0.001},
		assetSpec{"AAA", 5e8, 9e6, 0.001},
		assetSpec{"BBB", 5e8, 8e6, 0.001},
		assetSpec{"CCC", 5e8, 7e6, 0.001},
		assetSpec{"DDD", 5e8, 6e6, 0.001},   // ranked below the top 3
		assetSpec{"TINY", 1e6, 9e6, 0.001},  // fails market cap
		assetSpec{"THIN", 5e8, 1e5, 0.001},  // fails volume
	)

	sel := NewSelector(testSelectorConfig(), ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))

	require.Len(t, got, 3)
	assert.Contains(t, got, "AAA")
	assert.Contains(t, got, "BBB")
	assert.Contains(t, got, "CCC")
	assert.NotContains(t, got, "BTC", "benchmarks are always excluded")
	assert.NotContains(t, got, "TINY")
	assert.NotContains(t, got, "THIN")

	total := 0.0
	for _, w := range got {
		assert.Greater(t, w, 0.0)
		assert.LessOrEqual(t, w, 0.5+1e-12)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9, "equal weights must renormalize to one")
}

func TestSelector_ExplicitExclusions(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0},
		assetSpec{"ETH", 5e11, 5e9, 0},
		assetSpec{"USDT", 1e11, 1e10, 0},
		assetSpec{"AAA", 5e8, 9e6, 0},
	)

	cfg := testSelectorConfig()
	cfg.Exclusions = []string{"USDT"}
	sel := NewSelector(cfg, ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))

	assert.NotContains(t, got, "USDT")
	assert.Contains(t, got, "AAA")
}

func TestSelector_EmptyWhenNothingEligible(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0},
		assetSpec{"ETH", 5e11, 5e9, 0},
		assetSpec{"TINY", 1e6, 9e6, 0},
	)

	sel := NewSelector(testSelectorConfig(), ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))
	assert.Empty(t, got)
}

func TestSelector_MomentumBoundsExcludeExtremes(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0},
		assetSpec{"ETH", 5e11, 5e9, 0},
		assetSpec{"CALM", 5e8, 9e6, 0.001},
		assetSpec{"PUMP", 5e8, 9e6, 0.05},  // ~+65% over 10 days
		assetSpec{"DUMP", 5e8, 9e6, -0.05}, // ~-39% over 10 days
	)

	cfg := testSelectorConfig()
	cfg.MomentumWindow = 10
	cfg.MomentumMin = -0.3
	cfg.MomentumMax = 0.3
	sel := NewSelector(cfg, ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))

	assert.Contains(t, got, "CALM")
	assert.NotContains(t, got, "PUMP")
	assert.NotContains(t, got, "DUMP")
}

func TestSelector_MarketCapRankingAndWeighting(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0},
		assetSpec{"ETH", 5e11, 5e9, 0},
		assetSpec{"BIG", 9e8, 2e6, 0},
		assetSpec{"MID", 6e8, 3e6, 0},
		assetSpec{"SML", 3e8, 4e6, 0},
	)

	cfg := testSelectorConfig()
	cfg.MaxNames = 2
	cfg.RankBy = RankByMarketCap
	cfg.Weighting = WeightMarketCap
	cfg.MaxNameWeight = 0.9
	sel := NewSelector(cfg, ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))

	require.Len(t, got, 2)
	assert.Contains(t, got, "BIG")
	assert.Contains(t, got, "MID")
	assert.Greater(t, got["BIG"], got["MID"], "cap weighting must order by market cap")
	assert.InDelta(t, 1.0, got["BIG"]+got["MID"], 1e-9)
}

func TestSelector_PerNameCapUnsatisfiableReducesGross(t *testing.T) {
	days := 40
	ds := makeDataset(t, days,
		assetSpec{"BTC", 1e12, 1e10, 0},
		assetSpec{"ETH", 5e11, 5e9, 0},
		assetSpec{"AAA", 5e8, 9e6, 0},
		assetSpec{"BBB", 5e8, 8e6, 0},
	)

	cfg := testSelectorConfig()
	cfg.MaxNames = 2
	cfg.MaxNameWeight = 0.4 // two names cannot sum to 1 under a 0.4 cap
	sel := NewSelector(cfg, ds.Asset("BTC"), ds.Asset("ETH"))
	got := sel.BuildBasket(ds, testBase.AddDate(0, 0, days-1))

	require.Len(t, got, 2)
	assert.InDelta(t, 0.4, got["AAA"], 1e-9)
	assert.InDelta(t, 0.4, got["BBB"], 1e-9)
}

func TestCapAndRenormalize_SkewedWeights(t *testing.T) {
	// A dominant name forces repeated redistribution; previously-capped
	// names must never receive excess back.
	w := map[string]float64{"AAA": 0.8, "BBB": 0.15, "CCC": 0.05}
	capAndRenormalize(w, 0.4)

	total := 0.0
	for sym, v := range w {
		assert.LessOrEqualf(t, v, 0.4+1e-12, "name %s weight %.6f exceeds per-name cap", sym, v)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.4, w["AAA"], 1e-9)
	assert.InDelta(t, 0.4, w["BBB"], 1e-9)
	assert.InDelta(t, 0.2, w["CCC"], 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MaxNames = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Weighting = "square_root"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxNameWeight = 1.5
	assert.Error(t, bad.Validate())
}
