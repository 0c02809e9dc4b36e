package monitor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Tick is one monitoring round, triggered by an external market update.
type Tick struct {
	Block uint64
	Time  time.Time
}

// TickSource delivers market-update events. The returned channel closes when
// the context is cancelled or the upstream subscription dies.
type TickSource interface {
	Subscribe(ctx context.Context) (<-chan Tick, error)
}

// HeaderClient is the subset of an Ethereum client needed to follow heads.
type HeaderClient interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (Subscription, error)
}

// Subscription mirrors ethereum.Subscription.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

// HeaderTickSource emits one tick per new chain head.
type HeaderTickSource struct {
	client HeaderClient
	logger *zap.Logger
}

// NewHeaderTickSource creates a block-driven tick source.
func NewHeaderTickSource(client HeaderClient, logger *zap.Logger) *HeaderTickSource {
	return &HeaderTickSource{client: client, logger: logger}
}

// Subscribe follows new heads until the context is cancelled.
func (h *HeaderTickSource) Subscribe(ctx context.Context) (<-chan Tick, error) {
	headers := make(chan *types.Header, 16)
	sub, err := h.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, err
	}

	ticks := make(chan Tick, 16)
	go func() {
		defer close(ticks)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					h.logger.Error("Head subscription failed", zap.Error(err))
				}
				return
			case header := <-headers:
				if header == nil {
					continue
				}
				select {
				case ticks <- Tick{Block: header.Number.Uint64(), Time: time.Now()}:
				default:
					// Consumer is behind; skipping a head is safe because the
					// next tick refreshes against the newest state anyway.
					h.logger.Debug("Tick queue full, dropping head",
						zap.Uint64("block", header.Number.Uint64()))
				}
			}
		}
	}()
	return ticks, nil
}

// IntervalTickSource emits ticks on a fixed wall-clock interval, for nodes
// without a websocket endpoint. Block references are a monotonic counter.
type IntervalTickSource struct {
	interval time.Duration
}

// NewIntervalTickSource creates a timer-driven tick source.
func NewIntervalTickSource(interval time.Duration) *IntervalTickSource {
	return &IntervalTickSource{interval: interval}
}

// Subscribe emits ticks until the context is cancelled.
func (i *IntervalTickSource) Subscribe(ctx context.Context) (<-chan Tick, error) {
	ticks := make(chan Tick, 1)
	go func() {
		defer close(ticks)
		ticker := time.NewTicker(i.interval)
		defer ticker.Stop()
		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				seq++
				select {
				case ticks <- Tick{Block: seq, Time: now}:
				default:
				}
			}
		}
	}()
	return ticks, nil
}
