// Package sim walks a configured long/short strategy forward one day at a
// time: classify the regime, decide whether to trade, apply the risk
// overlay, solve the hedged book, and realize PnL against yesterday's
// held weights. The loop is strictly sequential; each day depends on the
// previous day's carry-state.
package sim

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/altbasket/internal/beta"
	"github.com/sawpanic/altbasket/internal/data"
	"github.com/sawpanic/altbasket/internal/regime"
	"github.com/sawpanic/altbasket/internal/risk"
)

// Simulator owns all per-run mutable state. One instance, one run.
type Simulator struct {
	cfg        Config
	ds         *data.Dataset
	scores     *data.ScoreSeries
	classifier *regime.Classifier
	strategy   Strategy
	overlay    *risk.Overlay

	// carry-state, rolled forward once per simulated day
	held          map[string]float64
	equity        float64
	peakEquity    float64
	entryEquity   float64
	daysHeld      int
	retWindow     []float64
	lastRebalance time.Time
	rebalanced    bool
	scoreAtRebal  float64
}

// New creates a simulator. The configuration must already be validated.
func New(cfg Config, ds *data.Dataset, scores *data.ScoreSeries, classifier *regime.Classifier, strategy Strategy, overlay *risk.Overlay) *Simulator {
	return &Simulator{
		cfg:        cfg,
		ds:         ds,
		scores:     scores,
		classifier: classifier,
		strategy:   strategy,
		overlay:    overlay,
		held:       map[string]float64{},
		equity:     cfg.InitialEquity,
	}
}

// Run simulates every calendar day in [start, end]. Days without a score
// are skipped, never fatal. The returned table is in date order.
func (s *Simulator) Run(start, end time.Time) []DailyResult {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)

	var results []DailyResult
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if res, ok := s.step(d); ok {
			results = append(results, res)
		}
	}
	return results
}

// WarmUp advances the regime classifier over [start, end) without trading
// or emitting records, so walk-forward test windows open with a settled
// label instead of a cold first-observation classification.
func (s *Simulator) WarmUp(start, end time.Time) {
	start = start.UTC().Truncate(24 * time.Hour)
	end = end.UTC().Truncate(24 * time.Hour)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		score, ok := s.scores.On(d)
		if !ok {
			continue
		}
		s.classifier.Observe(score, s.volProxy(d))
	}
}

// step runs the full per-day algorithm. Returns false when the day has no
// score observation and is skipped.
func (s *Simulator) step(d time.Time) (DailyResult, bool) {
	score, ok := s.scores.On(d)
	if !ok {
		return DailyResult{}, false
	}

	state := s.classifier.Observe(score, s.volProxy(d))

	// Risk triggers run before anything else and may flatten the held
	// book for this day's PnL, not merely veto the next rebalance.
	// Turnover is still charged against the pre-trigger book: a forced
	// exit is a real trade.
	preRisk := s.held
	riskEvent := ""
	verdict := s.overlay.Evaluate(risk.PositionStatus{
		HasPosition:     len(s.held) > 0,
		TrailingReturns: s.retWindow,
		Equity:          s.equity,
		PeakEquity:      s.peakEquity,
		EntryEquity:     s.entryEquity,
		DaysHeld:        s.daysHeld,
	})
	forcedFlat := false
	partialExit := false
	if verdict.ForceFlat {
		s.held = map[string]float64{}
		forcedFlat = true
		riskEvent = verdict.Reason
	} else if verdict.PartialScale > 0 && verdict.PartialScale < 1 {
		scaled := make(map[string]float64, len(s.held))
		for sym, w := range s.held {
			scaled[sym] = w * verdict.PartialScale
		}
		s.held = scaled
		partialExit = true
		riskEvent = verdict.Reason
	}

	// PnL realizes against the weights actually held going into the day.
	grossPnL, funding := s.markToMarket(d)

	shouldTrade := s.cfg.riskOn(state) && !forcedFlat
	// A partial exit holds at its reduced size for the day it fires;
	// rebuilding the book at full size the same day would undo the trim.
	needsRebalance := !partialExit && s.needsRebalance(d, state, score)

	var target map[string]float64
	switch {
	case !shouldTrade:
		target = map[string]float64{}
	case needsRebalance:
		target = s.buildTarget(d, state, score)
	default:
		target = s.held
	}

	turnover := turnover(preRisk, target)
	cost := turnover * s.cfg.FeeRate
	netPnL := grossPnL - cost - funding

	s.equity *= 1.0 + netPnL
	s.pushReturn(netPnL)

	basketGross, hedgeGross := s.legGross(target)
	res := DailyResult{
		Date:        d,
		Regime:      state.String(),
		Score:       score,
		GrossPnL:    grossPnL,
		NetPnL:      netPnL,
		Cost:        cost,
		Funding:     funding,
		Turnover:    turnover,
		BasketGross: basketGross,
		HedgeGross:  hedgeGross,
		Equity:      s.equity,
		Rebalanced:  shouldTrade && needsRebalance,
		RiskEvent:   riskEvent,
	}

	s.rollForward(d, target, score, res.Rebalanced)
	return res, true
}

// volProxy is the external volatility input to the regime gate: trailing
// realized vol of benchmark A.
func (s *Simulator) volProxy(d time.Time) float64 {
	bench := s.ds.Asset(s.cfg.BenchmarkA)
	if bench == nil {
		return 0
	}
	return data.RealizedVol(bench.TrailingLogReturns(d, s.cfg.VolProxyWindow))
}

// needsRebalance applies the configured cadence heuristic.
func (s *Simulator) needsRebalance(d time.Time, state regime.State, score float64) bool {
	if s.lastRebalance.IsZero() {
		return true
	}
	if s.cfg.RebalanceMode == RebalanceFixed {
		elapsed := int(d.Sub(s.lastRebalance).Hours() / 24)
		return elapsed >= s.cfg.RebalanceIntervalDays
	}
	if s.classifier.Dwell() == 0 { // regime changed this observation
		return true
	}
	return math.Abs(score-s.scoreAtRebal) > s.cfg.ScoreMoveThreshold
}

// buildTarget runs selector -> estimator -> solver and applies the
// confidence and volatility-targeting scales.
func (s *Simulator) buildTarget(d time.Time, state regime.State, score float64) map[string]float64 {
	basketWeights := s.strategy.Baskets.BuildBasket(s.ds, d)
	if len(basketWeights) == 0 {
		return map[string]float64{}
	}

	betas := make(map[string]beta.Estimate, len(basketWeights))
	for _, sym := range sortedSyms(basketWeights) {
		betas[sym] = s.strategy.Betas.EstimateBeta(s.ds.Asset(sym), d)
	}

	combined := s.strategy.Solver.SolveNeutrality(basketWeights, betas)

	scale := s.overlay.ConfidenceScale(state, score) * s.overlay.VolTargetScale(s.retWindow)
	if scale != 1.0 {
		for sym := range combined {
			combined[sym] *= scale
		}
	}
	return prune(combined)
}

// markToMarket computes today's gross PnL and funding carry from the
// currently held weights. Assets missing today's bar contribute zero.
func (s *Simulator) markToMarket(d time.Time) (grossPnL, funding float64) {
	for _, sym := range sortedSyms(s.held) {
		w := s.held[sym]
		series := s.ds.Asset(sym)
		if series == nil {
			log.Debug().Str("symbol", sym).Str("date", d.Format("2006-01-02")).
				Msg("held asset missing from dataset, zero return")
			continue
		}
		if r, ok := series.ReturnOn(d); ok {
			grossPnL += w * r
		}
		if s.cfg.FundingEnabled {
			if f8, ok := series.FundingOn(d); ok {
				// 8-hour rates compound three times per day; longs pay,
				// shorts receive under the assumed convention.
				daily := math.Pow(1.0+f8, 3) - 1.0
				funding += w * daily
			}
		}
	}
	return grossPnL, funding
}

// rollForward advances all carry-state to today's close.
func (s *Simulator) rollForward(d time.Time, target map[string]float64, score float64, rebalanced bool) {
	wasFlat := len(s.held) == 0
	isFlat := len(target) == 0

	switch {
	case wasFlat && !isFlat:
		s.entryEquity = s.equity
		s.peakEquity = s.equity
		s.daysHeld = 0
	case !wasFlat && !isFlat:
		s.daysHeld++
		if s.equity > s.peakEquity {
			s.peakEquity = s.equity
		}
	case isFlat:
		s.entryEquity = 0
		s.peakEquity = 0
		s.daysHeld = 0
	}

	s.held = copyWeights(target)
	if rebalanced {
		s.lastRebalance = d
		s.scoreAtRebal = score
	}
}

// pushReturn appends to the bounded trailing-return window.
func (s *Simulator) pushReturn(r float64) {
	s.retWindow = append(s.retWindow, r)
	if len(s.retWindow) > s.cfg.ReturnWindow {
		s.retWindow = s.retWindow[len(s.retWindow)-s.cfg.ReturnWindow:]
	}
}

// legGross splits gross exposure into basket and hedge legs.
func (s *Simulator) legGross(weights map[string]float64) (basketGross, hedgeGross float64) {
	for sym, w := range weights {
		if sym == s.cfg.BenchmarkA || sym == s.cfg.BenchmarkB {
			hedgeGross += math.Abs(w)
		} else {
			basketGross += math.Abs(w)
		}
	}
	return basketGross, hedgeGross
}

// turnover is the sum of absolute weight deltas between held and target,
// counting entries and exits as deltas from or to zero.
func turnover(held, target map[string]float64) float64 {
	total := 0.0
	seen := make(map[string]bool, len(held)+len(target))
	for sym, w := range target {
		total += math.Abs(w - held[sym])
		seen[sym] = true
	}
	for sym, w := range held {
		if !seen[sym] {
			total += math.Abs(w)
		}
	}
	return total
}

func sortedSyms(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func copyWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for sym, w := range m {
		if w != 0 {
			out[sym] = w
		}
	}
	return out
}

func prune(m map[string]float64) map[string]float64 {
	for sym, w := range m {
		if w == 0 {
			delete(m, sym)
		}
	}
	return m
}
