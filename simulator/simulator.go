// Package simulator prices a multi-hop trade against stored reserve
// snapshots: the output of each leg becomes the input of the next, using the
// constant-product primitive for every pool on the path.
package simulator

import (
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/amm"
	"github.com/michaelpento.lv/arbwatch/market"
)

// ErrMissingPair is returned when no reserve snapshot exists for a leg of
// the path. The path is dropped for the tick, not retried.
var ErrMissingPair = errors.New("simulator: missing pair data for leg")

// SimulatedTrade is the result of pushing an input amount through every leg
// of a path. Created fresh per evaluation and never mutated afterwards.
type SimulatedTrade struct {
	Path       []market.Asset
	AmountIn   *big.Int
	LegAmounts []*big.Int
	AmountOut  *big.Int

	// ExecutionPrice is AmountOut/AmountIn, fixed-point 1e18.
	ExecutionPrice *big.Int
	// MidPrice composes the per-leg pre-trade mid prices, fixed-point 1e18.
	MidPrice *big.Int
	// ImpactBps is (mid - execution) / mid in basis points.
	ImpactBps *big.Int
	// MinOut is the minimum acceptable output under the configured slippage
	// tolerance, surfaced for the executor.
	MinOut *big.Int
}

// Hops returns the number of edges the trade traverses.
func (t *SimulatedTrade) Hops() int {
	return len(t.Path) - 1
}

// Simulator applies the pricing primitive across a path's legs.
type Simulator struct {
	store       *market.PairStore
	slippageBps int64
	logger      *zap.Logger
}

// NewSimulator creates a simulator over the given pair store.
func NewSimulator(store *market.PairStore, slippageBps int64, logger *zap.Logger) *Simulator {
	return &Simulator{
		store:       store,
		slippageBps: slippageBps,
		logger:      logger,
	}
}

// Simulate prices amountIn of the path's first asset through every leg.
// Fails if any leg's pair is unknown or has a zero reserve.
func (s *Simulator) Simulate(path []market.Asset, amountIn *big.Int) (*SimulatedTrade, error) {
	if len(path) < 2 {
		return nil, errors.New("simulator: path needs at least two assets")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, amm.ErrZeroInput
	}

	priceScale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	amount := new(big.Int).Set(amountIn)
	legAmounts := make([]*big.Int, 0, len(path)-1)
	midPrice := new(big.Int).Set(priceScale)

	for i := 0; i < len(path)-1; i++ {
		assetIn, assetOut := path[i], path[i+1]

		pair, ok := s.store.Get(assetIn, assetOut)
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrMissingPair, assetIn, assetOut)
		}
		if pair.Degenerate() {
			return nil, fmt.Errorf("%w: %s/%s", market.ErrDegeneratePair, assetIn, assetOut)
		}

		reserveIn, reserveOut, err := pair.ReservesFor(assetIn)
		if err != nil {
			return nil, err
		}

		quote, err := amm.QuoteSwap(amount, reserveIn, reserveOut)
		if err != nil {
			return nil, fmt.Errorf("leg %s/%s: %w", assetIn, assetOut, err)
		}

		// Compose mid prices across legs in fixed point.
		midPrice.Mul(midPrice, quote.MidPrice)
		midPrice.Div(midPrice, priceScale)

		amount = quote.AmountOut
		legAmounts = append(legAmounts, quote.AmountOut)
	}

	executionPrice := new(big.Int).Div(
		new(big.Int).Mul(amount, priceScale),
		amountIn,
	)

	impact := big.NewInt(0)
	if midPrice.Sign() > 0 {
		impact = new(big.Int).Sub(midPrice, executionPrice)
		impact.Mul(impact, big.NewInt(10000))
		impact.Div(impact, midPrice)
		if impact.Sign() < 0 {
			impact = big.NewInt(0)
		}
	}

	trade := &SimulatedTrade{
		Path:           path,
		AmountIn:       new(big.Int).Set(amountIn),
		LegAmounts:     legAmounts,
		AmountOut:      amount,
		ExecutionPrice: executionPrice,
		MidPrice:       midPrice,
		ImpactBps:      impact,
		MinOut:         amm.MinOut(amount, s.slippageBps),
	}

	if s.logger != nil {
		s.logger.Debug("Trade calculation",
			zap.String("path", market.PathString(path)),
			zap.String("amount_in", amountIn.String()),
			zap.String("amount_out", amount.String()),
			zap.String("execution_price", executionPrice.String()),
			zap.String("impact_bps", impact.String()),
			zap.String("min_out", trade.MinOut.String()),
		)
	}

	return trade, nil
}
