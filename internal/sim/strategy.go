package sim

import (
	"time"

	"github.com/sawpanic/altbasket/internal/basket"
	"github.com/sawpanic/altbasket/internal/beta"
	"github.com/sawpanic/altbasket/internal/data"
	"github.com/sawpanic/altbasket/internal/hedge"
)

// BasketBuilder produces relative short-leg weights as of a date.
type BasketBuilder interface {
	BuildBasket(ds *data.Dataset, asOf time.Time) map[string]float64
}

// BetaEstimator produces an asset's benchmark sensitivity pair as of a date.
type BetaEstimator interface {
	EstimateBeta(asset *data.Series, asOf time.Time) beta.Estimate
}

// NeutralitySolver combines basket weights and betas into the signed
// basket+hedge book.
type NeutralitySolver interface {
	SolveNeutrality(basket map[string]float64, betas map[string]beta.Estimate) map[string]float64
}

// Strategy bundles the three pluggable stages the simulator dispatches
// through, so diagnostic and enhanced variants swap without touching the
// day loop.
type Strategy struct {
	Baskets BasketBuilder
	Betas   BetaEstimator
	Solver  NeutralitySolver
}

// NewStrategy wires the concrete production implementations.
func NewStrategy(sel *basket.Selector, est *beta.Estimator, solver *hedge.Solver) Strategy {
	return Strategy{Baskets: sel, Betas: est, Solver: solver}
}
