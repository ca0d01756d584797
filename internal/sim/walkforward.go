package sim

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/altbasket/internal/data"
	"github.com/sawpanic/altbasket/internal/regime"
	"github.com/sawpanic/altbasket/internal/risk"
)

// WalkForward partitions [start, end] into successive test windows and
// runs each with a fresh simulator, so no carry-state crosses a window
// boundary. Each window's classifier is warmed over the preceding
// lookback period before its first trading day. Outputs concatenate in
// date order.
type WalkForward struct {
	cfg           Config
	regimeCfg     regime.Config
	riskCfg       risk.Config
	ds            *data.Dataset
	scores        *data.ScoreSeries
	buildStrategy func() Strategy
}

// NewWalkForward creates the outer walk-forward runner. buildStrategy is
// invoked once per window so strategy state, if any, never leaks across
// windows either.
func NewWalkForward(cfg Config, regimeCfg regime.Config, riskCfg risk.Config, ds *data.Dataset, scores *data.ScoreSeries, buildStrategy func() Strategy) *WalkForward {
	return &WalkForward{
		cfg:           cfg,
		regimeCfg:     regimeCfg,
		riskCfg:       riskCfg,
		ds:            ds,
		scores:        scores,
		buildStrategy: buildStrategy,
	}
}

// Run executes every window and concatenates the result tables.
func (wf *WalkForward) Run(start, end time.Time) []DailyResult {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	var results []DailyResult
	window := 0
	for testStart := start; !testStart.After(end); testStart = testStart.AddDate(0, 0, wf.cfg.WalkForward.TestDays) {
		testEnd := testStart.AddDate(0, 0, wf.cfg.WalkForward.TestDays-1)
		if testEnd.After(end) {
			testEnd = end
		}
		window++

		classifier := regime.NewClassifier(wf.regimeCfg)
		overlay := risk.NewOverlay(wf.riskCfg)
		s := New(wf.cfg, wf.ds, wf.scores, classifier, wf.buildStrategy(), overlay)

		if wf.cfg.WalkForward.LookbackDays > 0 {
			s.WarmUp(testStart.AddDate(0, 0, -wf.cfg.WalkForward.LookbackDays), testStart)
		}

		windowResults := s.Run(testStart, testEnd)
		log.Info().
			Int("window", window).
			Str("test_start", testStart.Format("2006-01-02")).
			Str("test_end", testEnd.Format("2006-01-02")).
			Int("days", len(windowResults)).
			Msg("walk-forward window complete")
		results = append(results, windowResults...)
	}
	return results
}
