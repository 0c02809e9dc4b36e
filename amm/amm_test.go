package amm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAmountOutMatchesRouterFormula(t *testing.T) {
	// 997 * 1000 * 500 / (1000 * 1000 + 997 * 1000) = 249
	out, err := GetAmountOut(big.NewInt(1000), big.NewInt(1000), big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(249), out)
}

func TestGetAmountOutZeroReserve(t *testing.T) {
	_, err := GetAmountOut(big.NewInt(1000), big.NewInt(0), big.NewInt(500))
	assert.ErrorIs(t, err, ErrZeroReserve)

	_, err = GetAmountOut(big.NewInt(1000), big.NewInt(500), big.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroReserve)
}

func TestGetAmountOutZeroInput(t *testing.T) {
	_, err := GetAmountOut(big.NewInt(0), big.NewInt(1000), big.NewInt(500))
	assert.ErrorIs(t, err, ErrZeroInput)
}

func TestGetAmountOutNeverExceedsReserve(t *testing.T) {
	// Even an absurdly large input cannot drain the output reserve.
	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	out, err := GetAmountOut(huge, big.NewInt(1000), big.NewInt(500))
	require.NoError(t, err)
	assert.True(t, out.Cmp(big.NewInt(500)) < 0)
	assert.True(t, out.Sign() >= 0)
}

func TestExecutionPriceMonotonicallyDecreases(t *testing.T) {
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(2_000_000)

	var lastPrice *big.Int
	for _, amount := range []int64{1000, 10_000, 100_000, 500_000} {
		quote, err := QuoteSwap(big.NewInt(amount), reserveIn, reserveOut)
		require.NoError(t, err)
		if lastPrice != nil {
			assert.True(t, quote.ExecutionPrice.Cmp(lastPrice) < 0,
				"execution price must strictly decrease as input grows")
		}
		lastPrice = quote.ExecutionPrice
	}
}

func TestQuoteSwapImpact(t *testing.T) {
	quote, err := QuoteSwap(big.NewInt(100_000), big.NewInt(1_000_000), big.NewInt(1_000_000))
	require.NoError(t, err)

	assert.True(t, quote.ExecutionPrice.Cmp(quote.MidPrice) < 0)
	assert.True(t, quote.ImpactBps.Sign() > 0)
	assert.True(t, quote.ImpactBps.Cmp(big.NewInt(10000)) < 0)
}

func TestGetAmountInRoundTrip(t *testing.T) {
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(2_000_000)

	out, err := GetAmountOut(big.NewInt(50_000), reserveIn, reserveOut)
	require.NoError(t, err)

	in, err := GetAmountIn(out, reserveIn, reserveOut)
	require.NoError(t, err)

	// Rounding up means the recovered input is never below the original.
	assert.True(t, in.Cmp(big.NewInt(50_000)) >= 0)
	assert.True(t, in.Cmp(big.NewInt(50_100)) < 0)
}

func TestGetAmountInOutputExceedsReserve(t *testing.T) {
	_, err := GetAmountIn(big.NewInt(2_000_000), big.NewInt(1_000_000), big.NewInt(2_000_000))
	assert.Error(t, err)
}

func TestMinOut(t *testing.T) {
	// 0.5% tolerance on 10000 leaves 9950.
	assert.Equal(t, big.NewInt(9950), MinOut(big.NewInt(10000), 50))
	assert.Equal(t, big.NewInt(10000), MinOut(big.NewInt(10000), 0))
	assert.Equal(t, big.NewInt(0), MinOut(big.NewInt(10000), 10000))
	// Out-of-range tolerances clamp instead of corrupting the amount.
	assert.Equal(t, big.NewInt(10000), MinOut(big.NewInt(10000), -5))
}
