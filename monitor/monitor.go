// Package monitor drives the arbitrage pipeline: on each market tick it
// refreshes pair reserves, searches the token graph for cycles rooted at the
// base asset, evaluates each cycle's profitability and emits opportunity
// events. Ticks are processed one at a time; within a tick, pair refreshes
// and path evaluations fan out over a bounded worker pool. All writes to the
// graph and pair store are confined to the refresh phase, which completes
// before the search phase begins.
package monitor

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/michaelpento.lv/arbwatch/arbitrage"
	"github.com/michaelpento.lv/arbwatch/dex"
	"github.com/michaelpento.lv/arbwatch/market"
	"github.com/michaelpento.lv/arbwatch/pathfinder"
	"github.com/michaelpento.lv/arbwatch/simulator"
	"github.com/michaelpento.lv/arbwatch/utils/metrics"
)

// Lifecycle states. Ticks are events within StateRunning, not states.
const (
	StateIdle int32 = iota
	StateRunning
	StateStopped
)

var (
	// ErrNotConfigured is returned by Start when no base asset or token
	// universe has been established.
	ErrNotConfigured = errors.New("monitor: base asset and token universe must be configured")
	// ErrAlreadyRunning is returned by Start on a running monitor.
	ErrAlreadyRunning = errors.New("monitor: already running")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("monitor: stopped")
)

// Options configures a Monitor.
type Options struct {
	BaseAsset      market.Asset
	Universe       []market.Asset
	MaxHops        int
	TradeAmount    *big.Int
	MinProfit      *big.Int
	SlippageBps    int64
	MaxConcurrency int
	EventBuffer    int
}

// FeeEstimator prices the execution of a numHops swap in base-asset units.
type FeeEstimator interface {
	EstimateCost(numHops int) (*big.Int, error)
}

// Monitor owns the token graph and pair store for the lifetime of a
// monitoring session.
type Monitor struct {
	opts   Options
	source dex.Source
	fees   FeeEstimator
	logger *zap.Logger
	m      *metrics.MonitorMetrics

	graph  *market.TokenGraph
	store  *market.PairStore
	finder *pathfinder.PathFinder
	eval   *arbitrage.Evaluator

	// candidates are the unordered asset pairs the refresh phase polls:
	// every combination over the configured universe.
	candidates [][2]market.Asset

	state  atomic.Int32
	events chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a monitor from its collaborators. The pair store and graph are
// created here and owned by the monitor; the simulator and evaluator are
// built over them.
func New(opts Options, source dex.Source, fees FeeEstimator, m *metrics.MonitorMetrics, logger *zap.Logger) *Monitor {
	graph := market.NewTokenGraph()
	store := market.NewPairStore(graph)
	tradeSim := simulator.NewSimulator(store, opts.SlippageBps, logger)

	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.MinProfit == nil {
		opts.MinProfit = big.NewInt(0)
	}

	mon := &Monitor{
		opts:       opts,
		source:     source,
		fees:       fees,
		logger:     logger,
		m:          m,
		graph:      graph,
		store:      store,
		finder:     pathfinder.NewPathFinder(graph, logger),
		eval:       arbitrage.NewEvaluator(tradeSim, opts.MinProfit, logger),
		candidates: enumeratePairs(opts.Universe),
		events:     make(chan Event, opts.EventBuffer),
	}
	return mon
}

// enumeratePairs generates every unordered pair over the universe.
func enumeratePairs(universe []market.Asset) [][2]market.Asset {
	var pairs [][2]market.Asset
	for i := 0; i < len(universe); i++ {
		for j := i + 1; j < len(universe); j++ {
			pairs = append(pairs, [2]market.Asset{universe[i], universe[j]})
		}
	}
	return pairs
}

// Events returns the opportunity/warning stream. The channel closes after
// Stop once the in-flight tick has drained.
func (mon *Monitor) Events() <-chan Event {
	return mon.events
}

// State returns the current lifecycle state.
func (mon *Monitor) State() int32 {
	return mon.state.Load()
}

// Start transitions Idle -> Running and begins consuming ticks. It fails if
// the monitor is not configured or has already been started.
func (mon *Monitor) Start(ctx context.Context, ticks TickSource) error {
	if len(mon.opts.Universe) == 0 || mon.opts.BaseAsset.Address == (common.Address{}) {
		return ErrNotConfigured
	}
	if mon.opts.TradeAmount == nil || mon.opts.TradeAmount.Sign() <= 0 {
		return ErrNotConfigured
	}

	if !mon.state.CompareAndSwap(StateIdle, StateRunning) {
		if mon.state.Load() == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	mon.cancel = cancel

	tickCh, err := ticks.Subscribe(runCtx)
	if err != nil {
		mon.state.Store(StateStopped)
		cancel()
		return err
	}

	mon.logger.Info("Monitor started",
		zap.String("base", mon.opts.BaseAsset.String()),
		zap.Int("universe", len(mon.opts.Universe)),
		zap.Int("candidate_pairs", len(mon.candidates)),
		zap.Int("max_hops", mon.opts.MaxHops),
	)

	mon.wg.Add(1)
	go mon.run(runCtx, tickCh)
	return nil
}

// run consumes ticks one at a time. A tick arriving while another is being
// processed waits in the channel; the channel's buffer bounds the backlog
// and the source drops beyond it.
func (mon *Monitor) run(ctx context.Context, ticks <-chan Tick) {
	defer mon.wg.Done()
	defer close(mon.events)

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				return
			}
			mon.processTick(ctx, tick)
		}
	}
}

// Stop transitions to Stopped, allows the in-flight tick to finish, then
// clears the pair store. Idempotent.
func (mon *Monitor) Stop() {
	prev := mon.state.Swap(StateStopped)
	if prev != StateRunning {
		return
	}
	if mon.cancel != nil {
		mon.cancel()
	}
	mon.wg.Wait()
	mon.store.Clear()
	mon.logger.Info("Monitor stopped")
}

// processTick runs one full refresh -> search -> evaluate round.
func (mon *Monitor) processTick(ctx context.Context, tick Tick) {
	started := time.Now()

	mon.refreshPairs(ctx, tick)
	if ctx.Err() != nil {
		return
	}

	paths := mon.finder.FindCycles(mon.opts.BaseAsset, mon.opts.MaxHops)
	mon.evaluatePaths(ctx, tick, paths)

	if mon.m != nil {
		mon.m.TicksProcessed.Inc()
		mon.m.TickLatency.Observe(time.Since(started).Seconds())
		mon.m.GraphNodes.Set(float64(mon.graph.NodeCount()))
		mon.m.GraphEdges.Set(float64(mon.graph.EdgeCount()))
	}

	mon.logger.Debug("Tick processed",
		zap.Uint64("block", tick.Block),
		zap.Int("paths", len(paths)),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// refreshPairs polls every candidate pair. A failed refresh keeps the stale
// snapshot (if any), emits exactly one warning for the pair, and never
// aborts the tick. Upserts are all-or-nothing per pair.
func (mon *Monitor) refreshPairs(ctx context.Context, tick Tick) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mon.opts.MaxConcurrency)

	for _, candidate := range mon.candidates {
		assetA, assetB := candidate[0], candidate[1]
		g.Go(func() error {
			pair, err := mon.source.FetchPair(gctx, assetA, assetB)
			if err != nil {
				if mon.m != nil {
					mon.m.RefreshErrors.Inc()
				}
				mon.logger.Warn("Failed to refresh pair",
					zap.String("pair", assetA.String()+"/"+assetB.String()),
					zap.Uint64("block", tick.Block),
					zap.Error(err),
				)
				mon.emit(Event{Kind: EventWarning, Warning: &Warning{
					Kind:  WarnPairRefresh,
					Pair:  assetA.String() + "/" + assetB.String(),
					Block: tick.Block,
					Err:   err,
				}})
				return nil
			}
			pair.Block = tick.Block
			mon.store.Upsert(pair)
			if mon.m != nil {
				mon.m.PairsRefreshed.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}

// evaluatePaths scores every candidate cycle. Emission order across paths is
// not guaranteed.
func (mon *Monitor) evaluatePaths(ctx context.Context, tick Tick, paths [][]market.Asset) {
	costs := mon.costTable(tick, paths)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(mon.opts.MaxConcurrency)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			started := time.Now()
			opp, err := mon.eval.Evaluate(path, mon.opts.TradeAmount, costs[len(path)-1], tick.Block)
			if mon.m != nil {
				mon.m.PathsSearched.Inc()
				mon.m.EvalLatency.Observe(time.Since(started).Seconds())
			}
			if err != nil {
				if mon.m != nil {
					mon.m.PathsSkipped.Inc()
				}
				mon.logger.Warn("Path dropped",
					zap.String("path", market.PathString(path)),
					zap.Uint64("block", tick.Block),
					zap.Error(err),
				)
				mon.emit(Event{Kind: EventWarning, Warning: &Warning{
					Kind:  WarnMissingPair,
					Path:  market.PathString(path),
					Block: tick.Block,
					Err:   err,
				}})
				return nil
			}
			if opp != nil {
				if mon.m != nil {
					mon.m.OpportunitiesFound.Inc()
				}
				mon.emit(Event{Kind: EventOpportunity, Opportunity: opp})
			}
			return nil
		})
	}
	_ = g.Wait()
}

// costTable precomputes the execution cost per hop count for this tick. If
// no fee rate has ever been observed, cost netting is skipped for the whole
// tick (nil entries) and a single warning is emitted; the same fallback
// applies on every tick until a rate arrives.
func (mon *Monitor) costTable(tick Tick, paths [][]market.Asset) map[int]*big.Int {
	costs := make(map[int]*big.Int)
	var feeWarned bool
	for _, path := range paths {
		hops := len(path) - 1
		if _, ok := costs[hops]; ok {
			continue
		}
		cost, err := mon.fees.EstimateCost(hops)
		if err != nil {
			costs[hops] = nil
			if !feeWarned {
				feeWarned = true
				mon.logger.Warn("Fee estimate unavailable, skipping cost netting for tick",
					zap.Uint64("block", tick.Block),
					zap.Error(err),
				)
				mon.emit(Event{Kind: EventWarning, Warning: &Warning{
					Kind:  WarnFeeEstimate,
					Block: tick.Block,
					Err:   err,
				}})
			}
			continue
		}
		costs[hops] = cost
	}
	return costs
}

// emit delivers an event without blocking the tick; a full buffer drops the
// event and counts it.
func (mon *Monitor) emit(event Event) {
	select {
	case mon.events <- event:
	default:
		if mon.m != nil {
			mon.m.EventsDropped.Inc()
		}
		mon.logger.Warn("Event buffer full, dropping event")
	}
}
