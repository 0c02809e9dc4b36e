// Package amm implements constant-product pool pricing. Given a pool's
// reserves it computes swap output, execution price and price impact the way
// a Uniswap V2 pair contract does, with the trading fee applied to the input
// amount before the invariant.
package amm

import (
	"errors"
	"math/big"
)

// Fee constants for a 0.30% pool: the input is multiplied by 997/1000
// before the constant-product invariant is applied.
const (
	DefaultFeeNumerator   = 997
	DefaultFeeDenominator = 1000
)

// priceScale keeps prices in integer math: prices are fixed-point with 18
// fractional decimals, impact is in basis points.
var (
	priceScale = big.NewInt(1e18)
	bpsScale   = big.NewInt(10000)
)

var (
	// ErrZeroReserve is returned when either reserve is zero; the pool
	// cannot price any trade.
	ErrZeroReserve = errors.New("amm: zero reserve")
	// ErrZeroInput is returned for a non-positive input amount.
	ErrZeroInput = errors.New("amm: non-positive input amount")
)

// Quote is the result of pricing a single swap against one pool.
type Quote struct {
	AmountIn  *big.Int
	AmountOut *big.Int

	// ExecutionPrice is out/in, fixed-point 1e18.
	ExecutionPrice *big.Int
	// MidPrice is reserveOut/reserveIn before the trade, fixed-point 1e18.
	MidPrice *big.Int
	// ImpactBps is (mid - execution) / mid in basis points.
	ImpactBps *big.Int
}

// GetAmountOut computes the swap output for amountIn against the given
// reserves using the x*y=k invariant with the 997/1000 fee.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrZeroReserve
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroInput
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(DefaultFeeNumerator))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(
		new(big.Int).Mul(reserveIn, big.NewInt(DefaultFeeDenominator)),
		amountInWithFee,
	)
	return new(big.Int).Div(numerator, denominator), nil
}

// GetAmountIn computes the input required to receive amountOut, rounded up.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrZeroReserve
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrZeroInput
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, errors.New("amm: output exceeds reserve")
	}

	numerator := new(big.Int).Mul(
		new(big.Int).Mul(reserveIn, amountOut),
		big.NewInt(DefaultFeeDenominator),
	)
	denominator := new(big.Int).Mul(
		new(big.Int).Sub(reserveOut, amountOut),
		big.NewInt(DefaultFeeNumerator),
	)
	return new(big.Int).Add(new(big.Int).Div(numerator, denominator), big.NewInt(1)), nil
}

// QuoteSwap prices a full swap: output amount, execution price, mid price
// and price impact.
func QuoteSwap(amountIn, reserveIn, reserveOut *big.Int) (*Quote, error) {
	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}

	midPrice := new(big.Int).Div(
		new(big.Int).Mul(reserveOut, priceScale),
		reserveIn,
	)
	executionPrice := new(big.Int).Div(
		new(big.Int).Mul(amountOut, priceScale),
		amountIn,
	)

	impact := big.NewInt(0)
	if midPrice.Sign() > 0 {
		impact = new(big.Int).Sub(midPrice, executionPrice)
		impact.Mul(impact, bpsScale)
		impact.Div(impact, midPrice)
	}

	return &Quote{
		AmountIn:       new(big.Int).Set(amountIn),
		AmountOut:      amountOut,
		ExecutionPrice: executionPrice,
		MidPrice:       midPrice,
		ImpactBps:      impact,
	}, nil
}

// MinOut applies a slippage tolerance in basis points to an expected output:
// minOut = amountOut * (10000 - toleranceBps) / 10000.
func MinOut(amountOut *big.Int, toleranceBps int64) *big.Int {
	if toleranceBps < 0 {
		toleranceBps = 0
	}
	if toleranceBps > 10000 {
		toleranceBps = 10000
	}
	minOut := new(big.Int).Mul(amountOut, big.NewInt(10000-toleranceBps))
	return minOut.Div(minOut, bpsScale)
}
