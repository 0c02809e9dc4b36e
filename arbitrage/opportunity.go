package arbitrage

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/michaelpento.lv/arbwatch/market"
)

// Opportunity is a scored arbitrage cycle whose net profit cleared the
// configured threshold. Emitted once per qualifying path per tick; callers
// that want cross-tick debouncing key on ID.
type Opportunity struct {
	ID   uint64
	Path []market.Asset

	AmountIn      *big.Int
	GrossOut      *big.Int
	EstimatedCost *big.Int
	NetProfit     *big.Int

	// MinOut is the executor's slippage floor for the whole trade.
	MinOut    *big.Int
	ImpactBps *big.Int

	Block     uint64
	Timestamp time.Time
}

// PathSymbols returns the cycle as an ordered list of symbols.
func (o *Opportunity) PathSymbols() []string {
	symbols := make([]string, len(o.Path))
	for i, asset := range o.Path {
		symbols[i] = asset.Symbol
	}
	return symbols
}

// opportunityID hashes the path and tick reference into a stable identity.
func opportunityID(path []market.Asset, block uint64) uint64 {
	digest := xxhash.New()
	for _, asset := range path {
		_, _ = digest.Write(asset.Address.Bytes())
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], block)
	_, _ = digest.Write(buf[:])
	return digest.Sum64()
}
