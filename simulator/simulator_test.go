package simulator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/amm"
	"github.com/michaelpento.lv/arbwatch/market"
)

var (
	tokenX = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000001"), 18, "X")
	tokenY = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000002"), 18, "Y")
	tokenZ = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000003"), 18, "Z")
)

func mustPair(t *testing.T, a, b market.Asset, reserveA, reserveB int64) *market.Pair {
	t.Helper()
	pair, err := market.NewPair(a, b, big.NewInt(reserveA), big.NewInt(reserveB), 1)
	require.NoError(t, err)
	return pair
}

// triangleStore seeds the X-Y, Y-Z, and X-Z pools used across the multi-hop
// pricing tests.
func triangleStore(t *testing.T) *market.PairStore {
	t.Helper()
	store := market.NewPairStore(market.NewTokenGraph())
	store.Upsert(mustPair(t, tokenX, tokenY, 1000, 500))
	store.Upsert(mustPair(t, tokenY, tokenZ, 1000, 4000))
	store.Upsert(mustPair(t, tokenX, tokenZ, 1000, 100))
	return store
}

func TestSimulateMultiHop(t *testing.T) {
	sim := NewSimulator(triangleStore(t), 0, zap.NewNop())

	trade, err := sim.Simulate([]market.Asset{tokenX, tokenY, tokenZ, tokenX}, big.NewInt(1000))
	require.NoError(t, err)

	// 1000 X -> 249 Y -> 795 Z -> 887 X under the 0.3% fee curve.
	assert.Equal(t, []*big.Int{big.NewInt(249), big.NewInt(795), big.NewInt(887)}, trade.LegAmounts)
	assert.Equal(t, big.NewInt(887), trade.AmountOut)
	assert.Equal(t, 3, trade.Hops())
}

func TestSimulatePathsDiverge(t *testing.T) {
	sim := NewSimulator(triangleStore(t), 0, zap.NewNop())
	amountIn := big.NewInt(1000)

	viaY, err := sim.Simulate([]market.Asset{tokenX, tokenY, tokenZ, tokenX}, amountIn)
	require.NoError(t, err)

	direct, err := sim.Simulate([]market.Asset{tokenX, tokenZ, tokenX}, amountIn)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(887), viaY.AmountOut)
	assert.Equal(t, big.NewInt(328), direct.AmountOut)
	assert.NotEqual(t, viaY.AmountOut, direct.AmountOut)
}

func TestSimulateMissingPair(t *testing.T) {
	store := market.NewPairStore(market.NewTokenGraph())
	store.Upsert(mustPair(t, tokenX, tokenY, 1000, 500))

	sim := NewSimulator(store, 0, zap.NewNop())
	_, err := sim.Simulate([]market.Asset{tokenX, tokenY, tokenZ, tokenX}, big.NewInt(1000))

	assert.ErrorIs(t, err, ErrMissingPair)
}

func TestSimulateZeroReserveFailsDeterministically(t *testing.T) {
	store := market.NewPairStore(market.NewTokenGraph())
	store.Upsert(mustPair(t, tokenX, tokenY, 1000, 500))
	store.Upsert(mustPair(t, tokenY, tokenZ, 1000, 0))

	sim := NewSimulator(store, 0, zap.NewNop())

	for i := 0; i < 3; i++ {
		trade, err := sim.Simulate([]market.Asset{tokenX, tokenY, tokenZ}, big.NewInt(1000))
		assert.Nil(t, trade)
		assert.ErrorIs(t, err, market.ErrDegeneratePair)
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	sim := NewSimulator(triangleStore(t), 0, zap.NewNop())

	_, err := sim.Simulate([]market.Asset{tokenX}, big.NewInt(1000))
	assert.Error(t, err)

	_, err = sim.Simulate([]market.Asset{tokenX, tokenY}, big.NewInt(0))
	assert.ErrorIs(t, err, amm.ErrZeroInput)

	_, err = sim.Simulate([]market.Asset{tokenX, tokenY}, nil)
	assert.ErrorIs(t, err, amm.ErrZeroInput)
}

func TestSimulateImpactAndMinOut(t *testing.T) {
	sim := NewSimulator(triangleStore(t), 50, zap.NewNop())

	trade, err := sim.Simulate([]market.Asset{tokenX, tokenY}, big.NewInt(1000))
	require.NoError(t, err)

	// Mid price of the X-Y pool is 0.5; a 1000-unit trade against a
	// 1000-unit reserve moves the price hard.
	assert.Equal(t, big.NewInt(500000000000000000), trade.MidPrice)
	assert.True(t, trade.ImpactBps.Sign() > 0)
	assert.True(t, trade.ImpactBps.Cmp(big.NewInt(10000)) <= 0)

	expectedMinOut := new(big.Int).Mul(trade.AmountOut, big.NewInt(9950))
	expectedMinOut.Div(expectedMinOut, big.NewInt(10000))
	assert.Equal(t, expectedMinOut, trade.MinOut)
}

func TestSimulateDoesNotMutateInput(t *testing.T) {
	sim := NewSimulator(triangleStore(t), 0, zap.NewNop())

	amountIn := big.NewInt(1000)
	_, err := sim.Simulate([]market.Asset{tokenX, tokenY, tokenZ, tokenX}, amountIn)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1000), amountIn)
}
