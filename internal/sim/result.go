package sim

import "time"

// DailyResult is the immutable per-date record a run emits, one per
// simulated day, in date order.
type DailyResult struct {
	Date        time.Time `json:"date"`
	Regime      string    `json:"regime"`
	Score       float64   `json:"score"`
	GrossPnL    float64   `json:"gross_pnl"`
	NetPnL      float64   `json:"net_pnl"`
	Cost        float64   `json:"cost"`
	Funding     float64   `json:"funding"`
	Turnover    float64   `json:"turnover"`
	BasketGross float64   `json:"basket_gross"`
	HedgeGross  float64   `json:"hedge_gross"`
	Equity      float64   `json:"equity"`
	Rebalanced  bool      `json:"rebalanced"`
	RiskEvent   string    `json:"risk_event,omitempty"`
}
