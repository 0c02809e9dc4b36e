package monitor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbwatch/market"
)

var (
	baseW  = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000001"), 18, "W")
	tokenA = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000002"), 18, "A")
	tokenB = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000003"), 18, "B")
	tokenC = market.NewAsset(common.HexToAddress("0x0000000000000000000000000000000000000004"), 18, "C")
)

// fakeSource serves reserve snapshots from a fixed table and fails listed
// pairs. Safe for concurrent FetchPair calls.
type fakeSource struct {
	reserves map[market.PairKey][2]int64
	failing  map[market.PairKey]error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchPair(_ context.Context, assetA, assetB market.Asset) (*market.Pair, error) {
	key := market.KeyFor(assetA, assetB)
	if err, ok := f.failing[key]; ok {
		return nil, err
	}
	res, ok := f.reserves[key]
	if !ok {
		return nil, errors.New("pair not deployed")
	}
	return market.NewPair(assetA, assetB, big.NewInt(res[0]), big.NewInt(res[1]), 0)
}

type fakeFees struct {
	cost *big.Int
	err  error
}

func (f *fakeFees) EstimateCost(int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.cost), nil
}

// chanTicks hands the monitor a test-controlled tick channel.
type chanTicks struct {
	ch chan Tick
}

func (c *chanTicks) Subscribe(context.Context) (<-chan Tick, error) {
	return c.ch, nil
}

func defaultOptions() Options {
	return Options{
		BaseAsset:      baseW,
		Universe:       []market.Asset{baseW, tokenA, tokenB, tokenC},
		MaxHops:        3,
		TradeAmount:    big.NewInt(1000),
		MinProfit:      big.NewInt(500),
		SlippageBps:    50,
		MaxConcurrency: 2,
		EventBuffer:    64,
	}
}

// marketSource wires the W-A pool rich in A so cycles leaving through W-A
// are profitable. Reserve tuples follow FetchPair's argument order, which
// the monitor always passes in universe order.
func marketSource() *fakeSource {
	return &fakeSource{
		reserves: map[market.PairKey][2]int64{
			market.KeyFor(baseW, tokenA):  {1_000_000, 2_000_000},
			market.KeyFor(baseW, tokenB):  {1_000_000, 1_000_000},
			market.KeyFor(baseW, tokenC):  {1_000_000, 1_000_000},
			market.KeyFor(tokenA, tokenB): {1_000_000, 1_000_000},
			market.KeyFor(tokenA, tokenC): {1_000_000, 1_000_000},
			market.KeyFor(tokenB, tokenC): {1_000_000, 1_000_000},
		},
		failing: map[market.PairKey]error{},
	}
}

// runOneTick starts the monitor, delivers a single tick, and collects every
// event emitted for it.
func runOneTick(t *testing.T, mon *Monitor) []Event {
	t.Helper()

	ticks := &chanTicks{ch: make(chan Tick, 1)}
	require.NoError(t, mon.Start(context.Background(), ticks))

	ticks.ch <- Tick{Block: 100, Time: time.Now()}
	close(ticks.ch)

	var events []Event
	for event := range mon.Events() {
		events = append(events, event)
	}
	mon.Stop()
	return events
}

func warningsOfKind(events []Event, kind WarningKind) []*Warning {
	var warnings []*Warning
	for _, event := range events {
		if event.Kind == EventWarning && event.Warning.Kind == kind {
			warnings = append(warnings, event.Warning)
		}
	}
	return warnings
}

func opportunities(events []Event) []Event {
	var opps []Event
	for _, event := range events {
		if event.Kind == EventOpportunity {
			opps = append(opps, event)
		}
	}
	return opps
}

func TestMonitorEmitsOpportunities(t *testing.T) {
	mon := New(defaultOptions(), marketSource(), &fakeFees{cost: big.NewInt(100)}, nil, zap.NewNop())

	events := runOneTick(t, mon)

	opps := opportunities(events)
	require.NotEmpty(t, opps)
	for _, event := range opps {
		opp := event.Opportunity
		assert.Equal(t, uint64(100), opp.Block)
		assert.True(t, opp.NetProfit.Cmp(big.NewInt(500)) > 0)
		assert.Equal(t, "W", opp.Path[0].Symbol)
		assert.Equal(t, "W", opp.Path[len(opp.Path)-1].Symbol)
	}
	assert.Empty(t, warningsOfKind(events, WarnPairRefresh))
}

func TestMonitorOneFailingPairWarnsOnce(t *testing.T) {
	source := marketSource()
	source.failing[market.KeyFor(tokenB, tokenC)] = errors.New("rpc timeout")

	mon := New(defaultOptions(), source, &fakeFees{cost: big.NewInt(100)}, nil, zap.NewNop())
	events := runOneTick(t, mon)

	refreshWarnings := warningsOfKind(events, WarnPairRefresh)
	require.Len(t, refreshWarnings, 1)
	assert.Equal(t, uint64(100), refreshWarnings[0].Block)
	assert.ErrorContains(t, refreshWarnings[0].Err, "rpc timeout")

	// Cycles not touching B-C still evaluate and the profitable ones emit.
	assert.NotEmpty(t, opportunities(events))
	assert.Empty(t, warningsOfKind(events, WarnMissingPair))
}

func TestMonitorFeeFailureSkipsNettingWithOneWarning(t *testing.T) {
	mon := New(defaultOptions(), marketSource(), &fakeFees{err: errors.New("no fee observed")}, nil, zap.NewNop())
	events := runOneTick(t, mon)

	feeWarnings := warningsOfKind(events, WarnFeeEstimate)
	require.Len(t, feeWarnings, 1)

	// Without netting the gross profit stands, so opportunities still emit
	// with a zero recorded cost.
	opps := opportunities(events)
	require.NotEmpty(t, opps)
	for _, event := range opps {
		assert.Equal(t, big.NewInt(0), event.Opportunity.EstimatedCost)
	}
}

func TestMonitorStartValidation(t *testing.T) {
	mon := New(Options{}, marketSource(), &fakeFees{cost: big.NewInt(0)}, nil, zap.NewNop())
	err := mon.Start(context.Background(), &chanTicks{ch: make(chan Tick)})
	assert.ErrorIs(t, err, ErrNotConfigured)

	opts := defaultOptions()
	opts.TradeAmount = big.NewInt(0)
	mon = New(opts, marketSource(), &fakeFees{cost: big.NewInt(0)}, nil, zap.NewNop())
	err = mon.Start(context.Background(), &chanTicks{ch: make(chan Tick)})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMonitorLifecycle(t *testing.T) {
	mon := New(defaultOptions(), marketSource(), &fakeFees{cost: big.NewInt(100)}, nil, zap.NewNop())
	assert.Equal(t, StateIdle, mon.State())

	ticks := &chanTicks{ch: make(chan Tick)}
	require.NoError(t, mon.Start(context.Background(), ticks))
	assert.Equal(t, StateRunning, mon.State())

	err := mon.Start(context.Background(), ticks)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	mon.Stop()
	assert.Equal(t, StateStopped, mon.State())

	err = mon.Start(context.Background(), ticks)
	assert.ErrorIs(t, err, ErrStopped)

	mon.Stop()
	assert.Equal(t, StateStopped, mon.State())
}

func TestIntervalTickSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := NewIntervalTickSource(5 * time.Millisecond)
	ticks, err := source.Subscribe(ctx)
	require.NoError(t, err)

	first := <-ticks
	second := <-ticks
	assert.True(t, second.Block > first.Block)

	cancel()
	for range ticks {
	}
}
