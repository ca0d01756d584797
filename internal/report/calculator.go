// Package report summarizes and serializes a finished run's daily result
// table for the downstream cataloging layers.
package report

import (
	"math"
	"time"

	"github.com/sawpanic/altbasket/internal/sim"
)

// Summary contains headline performance statistics over one result table.
type Summary struct {
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Days             int       `json:"days"`
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"`
	Sharpe           float64   `json:"sharpe"`
	Sortino          float64   `json:"sortino"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	MaxDrawdownDays  int       `json:"max_drawdown_days"`
	HitRate          float64   `json:"hit_rate"`
	AvgTurnover      float64   `json:"avg_turnover"`
	TotalCost        float64   `json:"total_cost"`
	TotalFunding     float64   `json:"total_funding"`
	DaysInMarket     int       `json:"days_in_market"`
}

// Summarize computes the summary over a date-ordered result table.
// An empty table yields a zero Summary.
func Summarize(results []sim.DailyResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	s := Summary{
		StartDate: results[0].Date,
		EndDate:   results[len(results)-1].Date,
		Days:      len(results),
	}

	equity := 1.0
	peak := 1.0
	peakIdx := 0
	var (
		returns  []float64
		downside []float64
		wins     int
		active   int
	)
	for i, r := range results {
		equity *= 1.0 + r.NetPnL
		returns = append(returns, r.NetPnL)
		if r.NetPnL < 0 {
			downside = append(downside, r.NetPnL)
		}
		if r.BasketGross+r.HedgeGross > 0 {
			active++
			if r.NetPnL > 0 {
				wins++
			}
		}
		s.AvgTurnover += r.Turnover
		s.TotalCost += r.Cost
		s.TotalFunding += r.Funding

		if equity > peak {
			peak = equity
			peakIdx = i
		}
		dd := equity/peak - 1.0
		if dd < s.MaxDrawdown {
			s.MaxDrawdown = dd
			s.MaxDrawdownDays = i - peakIdx
		}
	}

	s.TotalReturn = equity - 1.0
	s.AvgTurnover /= float64(len(results))
	s.DaysInMarket = active
	if active > 0 {
		s.HitRate = float64(wins) / float64(active)
	}

	years := float64(len(results)) / 365.0
	if years > 0 && equity > 0 {
		s.AnnualizedReturn = math.Pow(equity, 1.0/years) - 1.0
	}

	meanDaily := mean(returns)
	vol := stddev(returns)
	s.Volatility = vol * math.Sqrt(365)
	if vol > 0 {
		s.Sharpe = meanDaily / vol * math.Sqrt(365)
	}
	if dv := stddev(downside); dv > 0 {
		s.Sortino = meanDaily / dv * math.Sqrt(365)
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
