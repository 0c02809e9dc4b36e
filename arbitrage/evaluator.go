// Package arbitrage nets simulated cycle trades against execution cost and
// a minimum-profit threshold, turning candidate paths into opportunities.
package arbitrage

import (
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/market"
	"github.com/michaelpento.lv/arbwatch/simulator"
)

// Evaluator scores cycle paths. Each Evaluate call is independent and safe
// to run concurrently with others; the evaluator holds no mutable state.
//
// Cost netting assumes the base asset is the chain's wrapped native token,
// so a wei-denominated gas cost subtracts directly from base-unit profit.
type Evaluator struct {
	sim       *simulator.Simulator
	minProfit *big.Int
	logger    *zap.Logger
}

// NewEvaluator creates an evaluator with the given minimum net profit
// threshold in base-asset units.
func NewEvaluator(sim *simulator.Simulator, minProfit *big.Int, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		sim:       sim,
		minProfit: minProfit,
		logger:    logger,
	}
}

// Evaluate simulates amountIn through the cycle and applies both
// profitability gates. estimatedCost is the execution cost for the path in
// base-asset units; a nil cost skips cost netting for the call (the fee
// fallback when no rate has ever been observed).
//
// Returns nil when the path is simply not profitable. An error means the
// path could not be evaluated at all (missing pair, degenerate reserves).
func (e *Evaluator) Evaluate(path []market.Asset, amountIn, estimatedCost *big.Int, block uint64) (*Opportunity, error) {
	trade, err := e.sim.Simulate(path, amountIn)
	if err != nil {
		return nil, err
	}

	// Gate 1: gross output must exceed input. Both ends of a cycle are the
	// base asset, so the comparison is unit-safe.
	if trade.AmountOut.Cmp(amountIn) <= 0 {
		return nil, nil
	}

	netProfit := new(big.Int).Sub(trade.AmountOut, amountIn)
	if estimatedCost != nil {
		netProfit.Sub(netProfit, estimatedCost)
	}

	// Gate 2: net profit must exceed the threshold.
	if netProfit.Cmp(e.minProfit) <= 0 {
		e.logger.Debug("Path not profitable",
			zap.String("path", market.PathString(path)),
			zap.String("net_profit", netProfit.String()),
		)
		return nil, nil
	}

	cost := big.NewInt(0)
	if estimatedCost != nil {
		cost = new(big.Int).Set(estimatedCost)
	}

	opp := &Opportunity{
		ID:            opportunityID(path, block),
		Path:          path,
		AmountIn:      new(big.Int).Set(amountIn),
		GrossOut:      trade.AmountOut,
		EstimatedCost: cost,
		NetProfit:     netProfit,
		MinOut:        trade.MinOut,
		ImpactBps:     trade.ImpactBps,
		Block:         block,
		Timestamp:     time.Now(),
	}

	e.logger.Info("Found profitable path",
		zap.String("path", market.PathString(path)),
		zap.String("amount_in", amountIn.String()),
		zap.String("gross_out", trade.AmountOut.String()),
		zap.String("estimated_cost", cost.String()),
		zap.String("net_profit", netProfit.String()),
		zap.Uint64("block", block),
	)

	return opp, nil
}
