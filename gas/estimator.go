// Package gas estimates the network fee cost of executing a multi-hop swap.
// The gas-unit model is a flat heuristic (base transaction cost plus a
// marginal cost per hop), not a simulated trace; anything needing more
// accuracy can replace the estimator behind the monitor's FeeEstimator
// interface.
package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Per-hop gas heuristic for a V2-style swap: storage reads, token transfers
// and swap execution.
const (
	baseTxGas = uint64(21000)
	gasPerHop = uint64(152000)
)

// ErrNoFeeObserved is returned before the first successful fee refresh.
var ErrNoFeeObserved = errors.New("gas: no fee rate observed yet")

// FeeClient is the subset of an Ethereum client the estimator needs.
type FeeClient interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
}

// Estimator tracks the current network fee rate and prices swap execution.
type Estimator struct {
	client FeeClient
	logger *zap.Logger

	mu      sync.RWMutex
	baseFee *big.Int
	tipCap  *big.Int

	updateTicker *time.Ticker
	done         chan struct{}
	stopOnce     sync.Once
}

// NewEstimator creates an estimator that refreshes the fee rate on the given
// interval until Stop is called.
func NewEstimator(client FeeClient, interval time.Duration, logger *zap.Logger) *Estimator {
	e := &Estimator{
		client:       client,
		logger:       logger,
		updateTicker: time.NewTicker(interval),
		done:         make(chan struct{}),
	}
	go e.updateLoop()
	return e
}

func (e *Estimator) updateLoop() {
	for {
		select {
		case <-e.done:
			return
		case <-e.updateTicker.C:
			if err := e.Refresh(context.Background()); err != nil {
				e.logger.Warn("Failed to refresh fee rate", zap.Error(err))
			}
		}
	}
}

// Refresh fetches the current base fee and priority fee. A failure keeps the
// previous observation; callers fall back to the stale rate for the tick.
func (e *Estimator) Refresh(ctx context.Context) error {
	baseFee, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	tipCap, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("failed to get priority fee: %w", err)
	}

	e.mu.Lock()
	e.baseFee = baseFee
	e.tipCap = tipCap
	e.mu.Unlock()

	return nil
}

// CurrentRate returns the last observed total fee rate (base fee plus
// priority fee) in wei per gas unit.
func (e *Estimator) CurrentRate() (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.baseFee == nil || e.tipCap == nil {
		return nil, ErrNoFeeObserved
	}
	return new(big.Int).Add(e.baseFee, e.tipCap), nil
}

// EstimateArbitrageGas returns the gas-unit estimate for a swap touching
// numHops pools.
func (e *Estimator) EstimateArbitrageGas(numHops int) uint64 {
	if numHops < 0 {
		numHops = 0
	}
	return baseTxGas + gasPerHop*uint64(numHops)
}

// EstimateCost returns the wei cost of executing a numHops swap at the
// current fee rate.
func (e *Estimator) EstimateCost(numHops int) (*big.Int, error) {
	rate, err := e.CurrentRate()
	if err != nil {
		return nil, err
	}
	gasUnits := new(big.Int).SetUint64(e.EstimateArbitrageGas(numHops))
	return gasUnits.Mul(gasUnits, rate), nil
}

// Stop halts the refresh loop. Idempotent.
func (e *Estimator) Stop() {
	e.stopOnce.Do(func() {
		e.updateTicker.Stop()
		close(e.done)
	})
}
